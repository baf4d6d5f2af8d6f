package refpath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-forge/pkg/orchestration"
)

func TestResolveSelfAttribute(t *testing.T) {
	root := orchestration.NewInstance("root", nil, nil)
	web := orchestration.NewInstance("web", root, nil)
	web.Attributes["port"] = orchestration.NewScalar(8080)

	expr := Parse("::.::port")
	ctx := orchestration.NewRefContext(web, nil)

	result, err := expr.Resolve(ctx, false, false)
	require.NoError(t, err)
	require.Equal(t, 8080, result)
}

func TestResolveNamedInstanceAttribute(t *testing.T) {
	root := orchestration.NewInstance("root", nil, nil)
	db := orchestration.NewInstance("db", root, nil)
	db.Attributes["host"] = orchestration.NewScalar("10.0.0.5")
	web := orchestration.NewInstance("web", root, nil)

	expr := Parse("::db::host")
	ctx := orchestration.NewRefContext(web, nil)

	result, err := expr.Resolve(ctx, false, false)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", result)
}

func TestResolveMissingAttributeNonStrictReturnsNil(t *testing.T) {
	root := orchestration.NewInstance("root", nil, nil)
	web := orchestration.NewInstance("web", root, nil)

	expr := Parse("::.::missing")
	ctx := orchestration.NewRefContext(web, nil)

	result, err := expr.Resolve(ctx, false, false)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestResolveMissingAttributeStrictErrors(t *testing.T) {
	root := orchestration.NewInstance("root", nil, nil)
	web := orchestration.NewInstance("web", root, nil)

	expr := Parse("::.::missing")
	ctx := orchestration.NewRefContext(web, nil)

	_, err := expr.Resolve(ctx, false, true)
	require.Error(t, err)
}

func TestResolveUnknownResourceNonStrict(t *testing.T) {
	root := orchestration.NewInstance("root", nil, nil)
	web := orchestration.NewInstance("web", root, nil)

	expr := Parse("::ghost::port")
	ctx := orchestration.NewRefContext(web, nil)

	result, err := expr.Resolve(ctx, true, false)
	require.NoError(t, err)
	require.Equal(t, []any{}, result)
}
