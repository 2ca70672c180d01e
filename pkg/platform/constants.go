package platform

// Platform names used as keys in PackageDescription.Platforms.
const (
	Linux32   = "linux"
	Linux64   = "linux64"
	Windows32 = "win32"
	Windows64 = "win64"
	MacOS64   = "macos64"
	// Common is the shared fallback for platform-independent archives.
	Common = "common"
)

// OS and architecture names as reported by the Go runtime after normalization.
const (
	OSWindows = "windows"
	OSLinux   = "linux"
	OSDarwin  = "macos"

	ArchAMD64 = "amd64"
	Arch386   = "386"
	ArchARM64 = "arm64"
	ArchARM   = "arm"
)

// ValidNames returns the platform names understood by Name and Candidates.
func ValidNames() []string {
	return []string{Linux32, Linux64, Windows32, Windows64, MacOS64, Common}
}
