package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/fastexpr"
	"github.com/zephyrtronium/fastexpr/config"
)

const yamlSettings = `
max_depth: 4
max_args: 2
keywords: false
fold: true
builtins: last
vars:
  g: 9.5
  two: 2
`

const jsonSettings = `{
	"max_tokens": 8,
	"builtins": "none",
	"vars": {"x": 3}
}`

func TestFromYAML(t *testing.T) {
	s, err := config.FromYAML([]byte(yamlSettings))
	require.NoError(t, err)
	assert.Equal(t, 4, s.MaxDepth)
	assert.Equal(t, 2, s.MaxArgs)
	assert.Zero(t, s.MaxTokens)
	require.NotNil(t, s.Keywords)
	assert.False(t, *s.Keywords)
	assert.True(t, s.Fold)
	assert.Equal(t, "last", s.Builtins)
	assert.Equal(t, map[string]float64{"g": 9.5, "two": 2}, s.Vars)
}

func TestFromJSON(t *testing.T) {
	s, err := config.FromJSON([]byte(jsonSettings))
	require.NoError(t, err)
	assert.Equal(t, 8, s.MaxTokens)
	assert.Nil(t, s.Keywords)
	assert.Equal(t, "none", s.Builtins)
	assert.Equal(t, fastexpr.MapNamespace{"x": 3}, s.Namespace())
}

func TestEmpty(t *testing.T) {
	s, err := config.FromYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), s)
	assert.Empty(t, s.ParseOptions())
}

func TestInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"negative", "max_depth: -1"},
		{"order", "builtins: middle"},
		{"varname", "vars: {\"2x\": 1}"},
		{"unknown", "max_dept: 3"},
		{"type", "fold: maybe"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(c.yaml))
			assert.Error(t, err)
		})
	}
	_, err := config.FromYAML([]byte("builtins: middle"))
	assert.ErrorIs(t, err, config.ErrInvalid)
	_, err = config.FromJSON([]byte(`{"unknown": 1}`))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
		return p
	}

	s, err := config.FromFile(write("a.yml", yamlSettings))
	require.NoError(t, err)
	assert.Equal(t, 4, s.MaxDepth)

	s, err = config.FromFile(write("b.JSON", jsonSettings))
	require.NoError(t, err)
	assert.Equal(t, 8, s.MaxTokens)

	_, err = config.FromFile(write("c.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported")

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProgramOptions(t *testing.T) {
	s, err := config.FromYAML([]byte(yamlSettings))
	require.NoError(t, err)
	opts := s.ProgramOptions()

	p, err := fastexpr.Prepare("g * two + 2^3", opts...)
	require.NoError(t, err)
	assert.Positive(t, p.Folded())
	r, err := p.Eval(s.Namespace())
	require.NoError(t, err)
	assert.Equal(t, 27.0, r)

	// Depth limit of 4.
	_, err = fastexpr.Prepare("((((((1))))))", opts...)
	var lerr *fastexpr.LimitError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, fastexpr.LimitDepth, lerr.Limit)

	// Keywords are off, so "and" is a variable.
	p, err = fastexpr.Prepare("and + 1", opts...)
	require.NoError(t, err)
	assert.Equal(t, []string{"and"}, p.Vars())

	// Built-ins last lets the namespace shadow them.
	p, err = fastexpr.Prepare("pi", opts...)
	require.NoError(t, err)
	r, err = p.Eval(fastexpr.MapNamespace{"pi": 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, r)
}

func TestProgramOptionsNoBuiltins(t *testing.T) {
	s, err := config.FromJSON([]byte(jsonSettings))
	require.NoError(t, err)
	p, err := fastexpr.Prepare("sqrt(x)", s.ProgramOptions()...)
	require.NoError(t, err)
	_, err = p.Eval(s.Namespace())
	var nerr *fastexpr.NameError
	assert.ErrorAs(t, err, &nerr)

	// Eight tokens at most.
	_, err = fastexpr.Prepare("1+1+1+1+1", s.ProgramOptions()...)
	var lerr *fastexpr.LimitError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, fastexpr.LimitTokens, lerr.Limit)
}

func TestNamespaceCopies(t *testing.T) {
	s := config.Settings{Vars: map[string]float64{"x": 1}}
	ns := s.Namespace()
	ns["x"] = 2
	assert.Equal(t, 1.0, s.Vars["x"])
}
