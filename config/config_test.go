package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jsdeob.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
main_array: strs
hex_prefix: "0X"
max_iterations: 8
fold_reassigned_constants: true
`)
	config, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, Config{
		MainArray:               "strs",
		HexPrefix:               "0X",
		MaxIterations:           8,
		FoldReassignedConstants: true,
	}, config)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "max_iterations: 2\n")
	config, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "_", config.MainArray)
	assert.Equal(t, "0x", config.HexPrefix)
	assert.Equal(t, 2, config.MaxIterations)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("JSDEOB_TEST_ARRAY", "table")
	path := writeConfig(t, "main_array: ${JSDEOB_TEST_ARRAY}\n")

	config, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "table", config.MainArray)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvMainArray, "envArray")
	t.Setenv(EnvHexPrefix, "%")
	t.Setenv(EnvMaxIterations, "6")
	path := writeConfig(t, "main_array: fileArray\n")

	config, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "envArray", config.MainArray)
	assert.Equal(t, "%", config.HexPrefix)
	assert.Equal(t, 6, config.MaxIterations)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		target  error
	}{
		{
			name:    "unknown key",
			content: "main_arry: x\n",
		},
		{
			name:    "zero iterations",
			content: "max_iterations: 0\n",
			target:  ErrInvalidIteration,
		},
		{
			name:    "empty prefix",
			content: "hex_prefix: \"\"\n",
			target:  ErrEmptyHexPrefix,
		},
		{
			name:    "bad iteration override",
			content: "",
			env:     map[string]string{EnvMaxIterations: "many"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for k, v := range test.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, test.content))
			assert.Error(t, err)
			if test.target != nil {
				assert.IsError(t, err, test.target)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	c.MainArray = ""
	assert.IsError(t, c.Validate(), ErrEmptyMainArray)

	c = Default()
	c.MaxIterations = -1
	assert.IsError(t, c.Validate(), ErrInvalidIteration)
}
