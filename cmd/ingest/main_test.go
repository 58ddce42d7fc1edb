package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crashLayout = `
- {name: County Code, length: 2}
- {name: Municipality Code, length: 2}
- {name: Department Case Number, length: 4}
- {name: Police Department, length: 10}
- {name: Crash Location, length: 10}
- {name: Latitude, length: 9}
- {name: Longitude, length: 10}
`

func crashLine(values ...string) string {
	widths := []int{2, 2, 4, 10, 10, 9, 10}
	var b strings.Builder
	for i, w := range widths {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		fmt.Fprintf(&b, "%-*s", w, v)
	}
	return b.String() + "\n"
}

// setup points the CLI at a temporary layout directory and local storage root.
func setup(t *testing.T) (root string) {
	t.Helper()
	layouts := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(layouts, "2017"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(layouts, "2017", "Accidents.yaml"), []byte(crashLayout), 0o600))

	root = t.TempDir()
	t.Setenv("NJCRASHES_SCHEMA_DIR", layouts)
	t.Setenv("NJCRASHES_STORAGE_PROVIDER", "local")
	t.Setenv("NJCRASHES_STORAGE_LOCAL_ROOT", root)
	t.Setenv("NJCRASHES_DB_ENABLED", "false")
	t.Setenv("NJCRASHES_LOG_LEVEL", "error")
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func sampleFile() string {
	return crashLine("01", "02", "A1", "POLICE", "MAIN ST", "40.1234", "-74.5678") +
		crashLine("01", "02", "A1", "Police", "Main St") +
		crashLine("01", "03", "B2", "Police", "Elm St", "40.00", "-74.00") +
		crashLine("01", "03", "B2", "Police", "Elm St", "40.01", "-74.00")
}

func TestDecodeCmd(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "NewJersey2019Accidents.txt")
	require.NoError(t, os.WriteFile(in, []byte(sampleFile()), 0o600))
	outCSV := filepath.Join(dir, "out.csv")

	out, err := execute(t, "decode", in, "--kind", "crash", "--year", "2019", "--dedupe", "-o", outCSV)
	require.NoError(t, err)
	assert.Contains(t, out, "records:             4")
	assert.Contains(t, out, "duplicate groups:    2 (1 paired, 1 fallback, 1 unresolved)")

	table, err := os.ReadFile(outCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(table)), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "01,02,A1,Police,Main St,40.1234,-74.5678", lines[1])
}

func TestDecodeCmd_JSON(t *testing.T) {
	setup(t)
	in := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(in, []byte(sampleFile()), 0o600))

	out, err := execute(t, "decode", in, "--kind", "Accidents", "--year", "2019", "--json", "--max-records", "1")
	require.NoError(t, err)

	var diag map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &diag))
	assert.Equal(t, float64(1), diag["total_records"])
	assert.Equal(t, true, diag["truncated"])
}

func TestDecodeCmd_Errors(t *testing.T) {
	setup(t)

	_, err := execute(t, "decode", "missing.txt", "--kind", "crash", "--year", "2019")
	assert.Error(t, err)

	_, err = execute(t, "decode", "missing.txt", "--kind", "bicycle", "--year", "2019")
	assert.Error(t, err)

	_, err = execute(t, "decode", "--kind", "crash", "--year", "2019")
	assert.Error(t, err)
}

func TestSchemaCmd(t *testing.T) {
	setup(t)

	out, err := execute(t, "schema", "--kind", "crash", "--year", "2019")
	require.NoError(t, err)
	assert.Contains(t, out, "Accidents 2019 (era 2017), 7 fields, width 47")
	assert.Contains(t, out, "Crash Location")
	assert.NotContains(t, out, "RULE")
}

func TestSchemaCmd_Rules(t *testing.T) {
	setup(t)

	out, err := execute(t, "schema", "--kind", "crash", "--year", "2019", "--rules")
	require.NoError(t, err)
	assert.Contains(t, out, "rules for crash:")
	assert.Regexp(t, `crash-2022-police-station-widened\s+2022-\s+widen "Police Station" by 2\s+no`, out)
	assert.Regexp(t, `crash-2001-2002-no-cell-phone-flag\s+2001-2002\s+drop "Cell Phone In Use Flag"\s+no`, out)
	assert.NotContains(t, out, "driver-2017-2018")
}

func TestRunCmd(t *testing.T) {
	root := setup(t)
	raw := filepath.Join(root, "nj-crashes", "njdot", "data", "2019")
	require.NoError(t, os.MkdirAll(raw, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "NewJersey2019Accidents.txt"), []byte(sampleFile()), 0o600))

	out, err := execute(t, "run", "--kinds", "crash", "--years", "2019")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")

	_, err = os.Stat(filepath.Join(root, "nj-crashes", "njdot", "tables", "2019", "Accidents.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "nj-crashes", "njdot", "tables", "2019", "Accidents_conflicts.csv"))
	assert.NoError(t, err)

	out, err = execute(t, "run", "--kinds", "crash", "--years", "2018,2019")
	assert.Error(t, err)
	assert.Contains(t, out, "failed")
}
