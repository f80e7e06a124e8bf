// File: internal/recorder/script.go
package recorder

import (
	"fmt"
	"strconv"

	"github.com/xkilldash9x/recorder-cli/internal/engine"
)

// Instruction emitters for the replay script grammar. The lines are an
// external contract consumed by the replay runner; keep the shapes stable.

func viewportComment(vp engine.Viewport) string {
	return fmt.Sprintf("// viewport %dx%d", vp.Width, vp.Height)
}

func setViewportLine(vp engine.Viewport) string {
	return fmt.Sprintf("await computer.setViewport(%d, %d);", vp.Width, vp.Height)
}

func navigateLine(url string) string {
	return fmt.Sprintf("await computer.navigate(%s);", strconv.Quote(url))
}

func waitLine(seconds int) string {
	return fmt.Sprintf("await computer.wait(%d);", seconds)
}

func clickLine(x, y int) string {
	return fmt.Sprintf("await computer.click(%d, %d);", x, y)
}

func scrollLine(dx, dy int) string {
	return fmt.Sprintf("await computer.scroll(%d, %d);", dx, dy)
}

func typeLine(text string) string {
	return fmt.Sprintf("await computer.type(%s);", strconv.Quote(text))
}

func keyLine(key string) string {
	return fmt.Sprintf("await computer.key(%s);", strconv.Quote(key))
}
