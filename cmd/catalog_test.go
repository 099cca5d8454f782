package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/triage/internal/catalog"
	"github.com/newhook/triage/internal/db"
	"github.com/newhook/triage/internal/rules"
)

func TestPrintRules_ListsInOrder(t *testing.T) {
	eng, err := rules.Default(catalog.Build(map[string]string{"out-of-memory": "oom"}))
	require.NoError(t, err)

	var out bytes.Buffer
	printRules(&out, eng.Rules(), eng.MissingKeys(), 60)
	text := out.String()

	first := strings.Index(text, "program-files")
	last := strings.Index(text, "java-architecture")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, last)
	assert.Less(t, first, last)

	assert.Contains(t, text, "32-bit-java (missing, inactive)")
	assert.NotContains(t, text, "out-of-memory (missing")

	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.HasPrefix(line, "    ") {
			assert.LessOrEqual(t, len([]rune(line)), 60, line)
		}
	}
}

func TestPrintRules_WideKeepsTriggers(t *testing.T) {
	eng, err := rules.Default(catalog.Build())
	require.NoError(t, err)

	var out bytes.Buffer
	printRules(&out, eng.Rules(), nil, 0)
	assert.Contains(t, out.String(), "Please remove it, OptiFine has built-in support for shaders.")
}

func TestPrintCatalog(t *testing.T) {
	cat := catalog.Build(map[string]string{
		"short": "Fits.",
		"long":  strings.Repeat("word ", 40) + "\nsecond line",
	})

	var out bytes.Buffer
	printCatalog(&out, cat, 40)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[0], "long "))
	assert.True(t, strings.HasSuffix(lines[0], "..."))
	assert.NotContains(t, out.String(), "second line")
	assert.Equal(t, "short  Fits.", lines[1])
}

func TestPrintCatalog_Empty(t *testing.T) {
	var out bytes.Buffer
	printCatalog(&out, catalog.Build(), 80)
	assert.Equal(t, "No responses\n", out.String())
}

func TestVerifyCatalog_Defaults(t *testing.T) {
	useTestState(t, nil)

	var out bytes.Buffer
	require.NoError(t, verifyCatalog(context.Background(), &out))
	assert.Contains(t, out.String(), "All 13 rules have responses")
	assert.NotContains(t, out.String(), "unused response")
}

func TestVerifyCatalog_ReportsUnusedOverrides(t *testing.T) {
	ctx := context.Background()
	stateDir := useTestState(t, nil)

	store, err := db.OpenPath(ctx, appConfig.Catalog.GetDB(stateDir))
	require.NoError(t, err)
	require.NoError(t, store.SetResponse(ctx, "stale-key", "No rule uses this."))
	require.NoError(t, store.Close())

	var out bytes.Buffer
	require.NoError(t, verifyCatalog(ctx, &out))
	assert.Contains(t, out.String(), "unused response: stale-key")
}
