package banner

import (
	"github.com/charmbracelet/lipgloss"

	"sockload/internal/report"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(report.ColorPrimary).
		Bold(true)

	ascii := `
   _____            __   __                    __
  / ___/____  _____/ /__/ /   ____  ____ _____/ /
  \__ \/ __ \/ ___/ //_/ /   / __ \/ __ '/ __  /
 ___/ / /_/ / /__/ ,< / /___/ /_/ / /_/ / /_/ /
/____/\____/\___/_/|_/_____/\____/\__,_/\__,_/   `

	return "\n" + style.Render(ascii) + "\n"
}
