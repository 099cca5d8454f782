package rules

// Trigger texts for the built-in rules. They are matched case-sensitively
// against the whole log, so embedded newlines are significant.
const (
	programFilesFolder = "Minecraft folder is:\nC:/Program Files"

	macosDragRegions = "Terminating app due to uncaught exception 'NSInternalInconsistencyException', " +
		"reason: 'NSWindow drag regions should only be invalidated on the Main Thread!'"

	oneDriveFolderPattern = `Minecraft folder is:\nC:/.+/.+/OneDrive`

	urlClassLoaderCast = "java.lang.ClassCastException: class jdk.internal.loader.ClassLoaders$AppClassLoader " +
		"cannot be cast to class java.net.URLClassLoader"

	unsupportedClassVersion = "java.lang.UnsupportedClassVersionError: net/minecraft/client/main/Main"
	fabricNeedsJava16       = "fabric requires {java @ [>=16]}"
	fabricNeedsJava17       = "fabric requires {java @ [>=17]}"

	cocoaServicePort = "java.lang.IllegalStateException: GLFW error before init: " +
		"[0x10008]Cocoa: Failed to find service port for display"

	pixelFormatNotAccelerated = "org.lwjgl.LWJGLException: Pixel format not accelerated"
	windows10                 = "Operating System: Windows 10"

	intelICDPattern = `C  \[(ig[0-9]+icd[0-9]+\.dll)\+(0x[0-9a-f]+)\]`

	idRangeExceeded = "java.lang.RuntimeException: Invalid id 4096 - maximum id range exceeded."

	outOfMemory = "java.lang.OutOfMemoryError"

	shadersModDetected = "java.lang.RuntimeException: Shaders Mod detected. " +
		"Please remove it, OptiFine has built-in support for shaders."

	fabricModResolution = "net.fabricmc.loader.discovery.ModResolutionException: Could not find required mod:"
	requiresFabricAPI   = "requires {fabric @"

	javaArchitectureMismatch = "Your Java architecture is not matching your system architecture."
)

// DefaultDefinitions returns the built-in rule set in evaluation order.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name:     "program-files",
			Key:      "program-files",
			Severity: SeverityHigh,
			Trigger:  Literal(programFilesFolder),
		},
		{
			Name:     "macos-too-new-java",
			Key:      "macos-java-too-new",
			Severity: SeverityHigh,
			Trigger:  Literal(macosDragRegions),
		},
		{
			Name:     "onedrive-managed-folder",
			Key:      "multimc-in-onedrive",
			Severity: SeverityMedium,
			Trigger:  Pattern(oneDriveFolderPattern),
		},
		{
			Name:     "forge-too-new-java",
			Key:      "use-java-8",
			Severity: SeverityHigh,
			Trigger:  Literal(urlClassLoaderCast),
		},
		{
			Name:     "java-too-old",
			Key:      "use-java-17",
			Severity: SeverityHigh,
			Trigger:  AnyOf(unsupportedClassVersion, fabricNeedsJava16, fabricNeedsJava17),
		},
		{
			Name:     "apple-silicon-service-port",
			Key:      "apple-silicon-incompatible-forge",
			Severity: SeverityHigh,
			Trigger:  Literal(cocoaServicePort),
		},
		{
			Name:     "pixel-format-win10",
			Key:      "unsupported-intel-gpu",
			Severity: SeverityMedium,
			Trigger:  AllOf(pixelFormatNotAccelerated, windows10),
		},
		{
			Name:     "intel-graphics-icd",
			Key:      "unsupported-intel-gpu",
			Severity: SeverityMedium,
			Trigger:  Pattern(intelICDPattern),
		},
		{
			Name:     "id-range-exceeded",
			Key:      "id-limit",
			Severity: SeverityHigh,
			Trigger:  Literal(idRangeExceeded),
		},
		{
			Name:     "out-of-memory",
			Key:      "out-of-memory",
			Severity: SeverityHigh,
			Trigger:  Literal(outOfMemory),
		},
		{
			Name:     "shadermod-optifine",
			Key:      "optifine-and-shadermod",
			Severity: SeverityHigh,
			Trigger:  Literal(shadersModDetected),
		},
		{
			Name:     "fabric-api-missing",
			Key:      "missing-fabric-api",
			Severity: SeverityHigh,
			Trigger:  AllOf(fabricModResolution, requiresFabricAPI),
		},
		{
			Name:     "java-architecture",
			Key:      "32-bit-java",
			Severity: SeverityMedium,
			Trigger:  Literal(javaArchitectureMismatch),
		},
	}
}
