package selector

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Render はページ一覧と送信ボタンをテキストで描画します。
func Render(w io.Writer, s State) error {
	var b strings.Builder

	if doc, ok := s.Document(); ok {
		fmt.Fprintf(&b, "%s (%d pages)\n", doc.Name, doc.PageCount)
		b.WriteString("Select Pages to Include:\n")
		for p := 1; p <= doc.PageCount; p++ {
			mark := " "
			if s.Selected(p) {
				mark = "x"
			}
			fmt.Fprintf(&b, "  [%s] Page %d\n", mark, p)
		}
		if sel := s.Selection(); len(sel) > 0 {
			order := make([]string, len(sel))
			for i, p := range sel {
				order[i] = strconv.Itoa(p)
			}
			fmt.Fprintf(&b, "Order: %s\n", strings.Join(order, ", "))
		}
	}
	fmt.Fprintf(&b, "< %s >\n", s.ButtonLabel())

	_, err := io.WriteString(w, b.String())
	return err
}
