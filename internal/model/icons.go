package model

// Themed icon names understood by desktop icon themes.
const (
	IconTopDefault    = "utilities-terminal-symbolic" // Panel/header icon
	IconBullet        = "pan-end-symbolic"            // Fallback for menu entries
	IconShellScript   = "application-x-shellscript"
	IconGenericScript = "text-x-script"
)

// Centralized glyphs for the terminal renderer
// Using simple single-width characters for consistent terminal rendering
const (
	GlyphCustom   = "◈" // Script has its own image next to it
	GlyphBullet   = "▸" // Named/themed icon
	GlyphTerminal = "❯" // Header icon
	GlyphFailed   = "✗" // Launch failed or non-zero exit
	GlyphOK       = "✓" // Exit status 0
	GlyphRunning  = "…" // Launch in flight
)
