package tools

import "runtime"

// InstallHints returns platform-specific install suggestions for tool.
func InstallHints(tool string) []string {
	return installHints(tool, runtime.GOOS)
}

func installHints(tool, goos string) []string {
	switch tool {
	case "claude":
		return []string{
			"Install Claude Code with npm: npm install -g @anthropic-ai/claude-code",
		}
	case "uvx":
		switch goos {
		case "darwin":
			return []string{
				"Install uv via Homebrew: brew install uv",
				"or with the installer: curl -LsSf https://astral.sh/uv/install.sh | sh",
			}
		case "linux":
			return []string{
				"Install uv with the installer: curl -LsSf https://astral.sh/uv/install.sh | sh",
				"or with pipx: pipx install uv",
			}
		case "windows":
			return []string{
				"Install uv via winget: winget install astral-sh.uv",
				`or with PowerShell: powershell -ExecutionPolicy ByPass -c "irm https://astral.sh/uv/install.ps1 | iex"`,
			}
		default:
			return []string{"Install uv using your platform's package manager"}
		}
	}
	return nil
}
