package version

// Version is the Major.Minor.Patch tag from git, set at link time with
// -ldflags "-X github.com/jake-scott/nestctl/version.Version=...".  It
// defaults to 'dev'.
var Version string = "dev"
