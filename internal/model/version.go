package model

// AppName names the log file, the config directory and the notification title.
const AppName = "scriptmenu"

// Version is overridden at build time with -ldflags "-X scriptmenu/internal/model.Version=...".
var Version = "0.3.0"
