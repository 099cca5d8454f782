package rules

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/triage/internal/catalog"
)

func stockCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	entries, err := catalog.Defaults()
	require.NoError(t, err)
	return catalog.Build(entries)
}

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := Default(stockCatalog(t))
	require.NoError(t, err)
	return eng
}

func ruleNames(matches []Match) []string {
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Rule
	}
	return names
}

func TestDefault_RuleOrder(t *testing.T) {
	eng := defaultEngine(t)

	var names []string
	for _, info := range eng.Rules() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{
		"program-files",
		"macos-too-new-java",
		"onedrive-managed-folder",
		"forge-too-new-java",
		"java-too-old",
		"apple-silicon-service-port",
		"pixel-format-win10",
		"intel-graphics-icd",
		"id-range-exceeded",
		"out-of-memory",
		"shadermod-optifine",
		"fabric-api-missing",
		"java-architecture",
	}, names)
}

func TestDefault_NoMissingKeys(t *testing.T) {
	eng := defaultEngine(t)
	assert.Empty(t, eng.MissingKeys())
}

func TestEvaluate_EachRuleInIsolation(t *testing.T) {
	cat := stockCatalog(t)
	eng, err := Default(cat)
	require.NoError(t, err)

	tests := []struct {
		rule     string
		input    string
		key      string
		severity Severity
	}{
		{"program-files", "Minecraft folder is:\nC:/Program Files/MultiMC/instances/a/.minecraft", "program-files", SeverityHigh},
		{"macos-too-new-java", macosDragRegions, "macos-java-too-new", SeverityHigh},
		{"onedrive-managed-folder", "Minecraft folder is:\nC:/Users/alice/OneDrive/MultiMC", "multimc-in-onedrive", SeverityMedium},
		{"forge-too-new-java", urlClassLoaderCast + " (jdk.internal.loader.ClassLoaders$AppClassLoader)", "use-java-8", SeverityHigh},
		{"java-too-old", unsupportedClassVersion + " has been compiled by a more recent version", "use-java-17", SeverityHigh},
		{"java-too-old", "- Mod 'Fabric Loader' (fabricloader) 0.11.6 " + fabricNeedsJava16, "use-java-17", SeverityHigh},
		{"java-too-old", fabricNeedsJava17, "use-java-17", SeverityHigh},
		{"apple-silicon-service-port", cocoaServicePort, "apple-silicon-incompatible-forge", SeverityHigh},
		{"pixel-format-win10", pixelFormatNotAccelerated + "\n...\nOperating System: Windows 10 (amd64) version 10.0", "unsupported-intel-gpu", SeverityMedium},
		{"intel-graphics-icd", "C  [ig9icd64.dll+0x1f3a2]", "unsupported-intel-gpu", SeverityMedium},
		{"id-range-exceeded", idRangeExceeded, "id-limit", SeverityHigh},
		{"out-of-memory", "Exception in thread \"main\" java.lang.OutOfMemoryError: Java heap space", "out-of-memory", SeverityHigh},
		{"shadermod-optifine", shadersModDetected, "optifine-and-shadermod", SeverityHigh},
		{"fabric-api-missing", fabricModResolution + " [sodium]\n - Mod sodium requires {fabric @ [*]}, which is missing!", "missing-fabric-api", SeverityHigh},
		{"java-architecture", javaArchitectureMismatch, "32-bit-java", SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			matches := eng.Evaluate(tt.input)
			require.Len(t, matches, 1, "got %v", ruleNames(matches))

			want, ok := cat.Lookup(tt.key)
			require.True(t, ok)
			assert.Equal(t, Match{Rule: tt.rule, Severity: tt.severity, Message: want}, matches[0])
		})
	}
}

func TestEvaluate_TriggersAbsent(t *testing.T) {
	eng := defaultEngine(t)

	inputs := []string{
		"",
		"   \n\t\n   ",
		"MultiMC version: 0.6.12-1234\nJava is version 1.8.0_291, using 64-bit architecture.",
		"java.lang.outofmemoryerror",
		"Minecraft folder is: C:/Program Files",
	}
	for _, input := range inputs {
		assert.Empty(t, eng.Evaluate(input), "input %q", input)
	}
}

func TestEvaluate_EmptyInputReturnsEmptyList(t *testing.T) {
	eng := defaultEngine(t)
	matches := eng.Evaluate("")
	require.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestEvaluate_OutOfMemoryOnly(t *testing.T) {
	eng := defaultEngine(t)

	matches := eng.Evaluate("java.lang.OutOfMemoryError")
	require.Len(t, matches, 1)
	assert.Equal(t, "out-of-memory", matches[0].Rule)
	assert.Equal(t, SeverityHigh, matches[0].Severity)
}

func TestEvaluate_PixelFormatNeedsBothTerms(t *testing.T) {
	eng := defaultEngine(t)

	both := "org.lwjgl.LWJGLException: Pixel format not accelerated\nOperating System: Windows 10"
	assert.Equal(t, []string{"pixel-format-win10"}, ruleNames(eng.Evaluate(both)))

	assert.Empty(t, eng.Evaluate("org.lwjgl.LWJGLException: Pixel format not accelerated"))
	assert.Empty(t, eng.Evaluate("Operating System: Windows 10"))
}

func TestEvaluate_OneDrivePattern(t *testing.T) {
	eng := defaultEngine(t)

	assert.Equal(t, []string{"onedrive-managed-folder"},
		ruleNames(eng.Evaluate("Minecraft folder is:\nC:/Users/alice/OneDrive")))
	assert.Empty(t, eng.Evaluate("Minecraft folder is:\nC:/Users/alice/Documents"))
	assert.Empty(t, eng.Evaluate("Minecraft folder is: C:/Users/alice/OneDrive"),
		"folder must follow the header on the next line")
}

func TestEvaluate_FabricAPINeedsBothTerms(t *testing.T) {
	eng := defaultEngine(t)

	both := fabricModResolution + " [modmenu]\nmodmenu requires {fabric @ [>=0.28.0]}"
	assert.Equal(t, []string{"fabric-api-missing"}, ruleNames(eng.Evaluate(both)))
	assert.Empty(t, eng.Evaluate(fabricModResolution+" [modmenu]"))
	assert.Empty(t, eng.Evaluate("modmenu requires {fabric @ [>=0.28.0]}"))
}

func TestEvaluate_PreservesDeclarationOrder(t *testing.T) {
	eng := defaultEngine(t)

	// Triggers appear in the log in reverse rule order.
	log := strings.Join([]string{
		javaArchitectureMismatch,
		"java.lang.OutOfMemoryError",
		"C  [ig75icd64.dll+0xabc]",
		"Minecraft folder is:\nC:/Program Files/MultiMC",
	}, "\n")

	got := ruleNames(eng.Evaluate(log))
	want := []string{"program-files", "intel-graphics-icd", "out-of-memory", "java-architecture"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rule order mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_SharedKeyFiresPerRule(t *testing.T) {
	eng := defaultEngine(t)

	log := pixelFormatNotAccelerated + "\n" + windows10 + "\nC  [ig8icd32.dll+0x12]"
	matches := eng.Evaluate(log)
	assert.Equal(t, []string{"pixel-format-win10", "intel-graphics-icd"}, ruleNames(matches))
	assert.Equal(t, matches[0].Message, matches[1].Message)
}

func TestEvaluate_Idempotent(t *testing.T) {
	eng := defaultEngine(t)
	log := "java.lang.OutOfMemoryError\n" + idRangeExceeded

	first := eng.Evaluate(log)
	second := eng.Evaluate(log)
	assert.Equal(t, first, second)
}

func TestEvaluate_MissingCatalogKeyIsSilent(t *testing.T) {
	entries, err := catalog.Defaults()
	require.NoError(t, err)
	delete(entries, "out-of-memory")

	eng, err := Default(catalog.Build(entries))
	require.NoError(t, err)

	matches := eng.Evaluate("java.lang.OutOfMemoryError\n" + javaArchitectureMismatch)
	assert.Equal(t, []string{"java-architecture"}, ruleNames(matches))
	assert.Equal(t, []string{"out-of-memory"}, eng.MissingKeys())
}

func TestEvaluate_EmptyCatalogNeverFires(t *testing.T) {
	eng, err := Default(catalog.Build())
	require.NoError(t, err)

	assert.Empty(t, eng.Evaluate("java.lang.OutOfMemoryError"))
	assert.Len(t, eng.MissingKeys(), 12)
}

func TestEvaluateParallel_MatchesSequential(t *testing.T) {
	eng := defaultEngine(t)
	log := strings.Join([]string{
		"Minecraft folder is:\nC:/Users/bob/OneDrive/Games",
		fabricNeedsJava17,
		"java.lang.OutOfMemoryError",
		shadersModDetected,
	}, "\n")

	want := eng.Evaluate(log)
	require.Len(t, want, 4)
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, eng.EvaluateParallel(log))
	}
	assert.Empty(t, eng.EvaluateParallel(""))
}

func TestEngine_ConcurrentEvaluate(t *testing.T) {
	eng := defaultEngine(t)
	log := "java.lang.OutOfMemoryError\n" + cocoaServicePort

	var wg sync.WaitGroup
	results := make([][]Match, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = eng.Evaluate(log)
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []string{"apple-silicon-service-port", "out-of-memory"}, ruleNames(r))
	}
}

func TestNew_RejectsMalformedPattern(t *testing.T) {
	_, err := New(catalog.Build(), []Definition{
		{Name: "broken", Key: "k", Severity: SeverityHigh, Trigger: Pattern(`(unclosed`)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `rule "broken"`)
}

func TestNew_ValidatesDefinitions(t *testing.T) {
	cat := catalog.Build()
	tests := []struct {
		name string
		defs []Definition
	}{
		{"missing name", []Definition{{Key: "k", Severity: SeverityHigh, Trigger: Literal("x")}}},
		{"missing key", []Definition{{Name: "r", Severity: SeverityHigh, Trigger: Literal("x")}}},
		{"bad severity", []Definition{{Name: "r", Key: "k", Severity: "low", Trigger: Literal("x")}}},
		{"empty term", []Definition{{Name: "r", Key: "k", Severity: SeverityHigh, Trigger: AllOf("a", "")}}},
		{"no terms", []Definition{{Name: "r", Key: "k", Severity: SeverityHigh, Trigger: AnyOf()}}},
		{"unknown kind", []Definition{{Name: "r", Key: "k", Severity: SeverityHigh, Trigger: Trigger{Kind: "fuzzy", Terms: []string{"x"}}}}},
		{"duplicate name", []Definition{
			{Name: "r", Key: "k", Severity: SeverityHigh, Trigger: Literal("x")},
			{Name: "r", Key: "k", Severity: SeverityHigh, Trigger: Literal("y")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(cat, tt.defs)
			assert.Error(t, err)
		})
	}
}

func TestNew_CopiesTriggerTerms(t *testing.T) {
	terms := []string{"alpha", "beta"}
	eng, err := New(catalog.Build(map[string]string{"k": "both seen"}), []Definition{
		{Name: "pair", Key: "k", Severity: SeverityMedium, Trigger: AllOf(terms...)},
	})
	require.NoError(t, err)
	require.Len(t, eng.Evaluate("alpha and beta"), 1)

	terms[1] = "gamma"

	assert.Len(t, eng.Evaluate("alpha and beta"), 1)
	assert.Empty(t, eng.Evaluate("alpha and gamma"))
	assert.Equal(t, `"alpha" AND "beta"`, eng.Rules()[0].Trigger)
}

func TestNew_RequiresCatalog(t *testing.T) {
	_, err := New(nil, DefaultDefinitions())
	assert.Error(t, err)
}

func TestSeverity_Glyph(t *testing.T) {
	assert.Equal(t, "‼", SeverityHigh.Glyph())
	assert.Equal(t, "❗", SeverityMedium.Glyph())
	assert.Equal(t, "?", Severity("low").Glyph())
}

func TestTrigger_String(t *testing.T) {
	assert.Equal(t, `"a"`, Literal("a").String())
	assert.Equal(t, `"a" AND "b"`, AllOf("a", "b").String())
	assert.Equal(t, `"a" OR "b"`, AnyOf("a", "b").String())
	assert.Equal(t, `/a+b/`, Pattern("a+b").String())
}
