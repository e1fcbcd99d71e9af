package hcl

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/assetgridgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// isExprDefined checks if an HCL expression was actually present in the
// source. gohcl fills omitted optional expression fields with zero-width
// placeholders, so a nil check is not enough.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

// evalContext exposes the process environment as `env.NAME`.
func evalContext(environ []string) (*hcl.EvalContext, error) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			env[k] = v
		}
	}
	envVal, err := gocty.ToCtyValue(env, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("converting environment: %w", err)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"env": envVal}}, nil
}

// objectValue evaluates an object-typed attribute into a Go map. An omitted
// attribute yields an empty map.
func objectValue(ctx context.Context, expr hcl.Expression, evalCtx *hcl.EvalContext, what string) (map[string]any, error) {
	logger := ctxlog.FromContext(ctx)
	if !isExprDefined(expr) {
		return map[string]any{}, nil
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", what, diags)
	}
	if val.IsNull() {
		return map[string]any{}, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("%s must be an object, got %s", what, ty.FriendlyName())
	}

	goVal, err := toGo(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	m, _ := goVal.(map[string]any)
	logger.Debug("Decoded object attribute.", "attribute", what, "keys", len(m))
	return m, nil
}

// optionsValue evaluates a task's options object. Options stay cty values so
// each transform can decode them into its own typed input.
func optionsValue(ctx context.Context, expr hcl.Expression, evalCtx *hcl.EvalContext, what string) (cty.Value, error) {
	if !isExprDefined(expr) {
		return cty.EmptyObjectVal, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("%s: %w", what, diags)
	}
	if val.IsNull() {
		return cty.EmptyObjectVal, nil
	}
	if ty := val.Type(); !ty.IsObjectType() && !ty.IsMapType() {
		return cty.NilVal, fmt.Errorf("%s must be an object, got %s", what, ty.FriendlyName())
	}
	if !val.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("%s: value is not known at load time", what)
	}
	ctxlog.FromContext(ctx).Debug("Evaluated options.", "attribute", what, "keys", len(val.AsValueMap()))
	return val, nil
}

// toGo converts a cty value into plain Go values: map[string]any, []any,
// string, float64, bool or nil.
func toGo(val cty.Value) (any, error) {
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known at load time")
	}
	raw, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
