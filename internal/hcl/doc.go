// Package hcl provides the concrete HCL implementation of config.Loader.
// It parses pipeline files written in native HCL syntax or in HCL's JSON
// variant, evaluates expressions and translates the blocks into the
// format-agnostic config.Model.
package hcl
