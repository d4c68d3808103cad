package pdf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Selection は検証済みのページ選択（1-based、選択順）です。
type Selection struct {
	pages []int
}

// Pages は選択されたページ番号を選択順に返します。
func (s Selection) Pages() []int {
	return append([]int(nil), s.pages...)
}

// Indices は各ページ番号を 0-based のインデックスに変換して返します。
func (s Selection) Indices() []int {
	indices := make([]int, len(s.pages))
	for i, p := range s.pages {
		indices[i] = p - 1
	}
	return indices
}

// Len は選択されたページ数を返します。
func (s Selection) Len() int { return len(s.pages) }

// ParseSelection はクエリやフォームから受け取った値をページ番号の列に変換します。
// 繰り返し指定（"3","1"）、カンマ区切り（"3,1"）、JSON配列（"[3,1]"）を受け付けます。
func ParseSelection(values []string) ([]int, error) {
	var pages []int
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}

		if strings.HasPrefix(v, "[") {
			var arr []int
			if err := json.Unmarshal([]byte(v), &arr); err != nil {
				return nil, newError(CodeInvalidSelection, "selectedPages must be a JSON array of integers", err)
			}
			pages = append(pages, arr...)
			continue
		}

		for _, token := range strings.Split(v, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				return nil, newError(CodeInvalidSelection, "selectedPages contains an empty value", nil)
			}
			n, err := strconv.Atoi(token)
			if err != nil {
				return nil, newError(CodeInvalidSelection, fmt.Sprintf("selectedPages must contain integers, got %q", token), err)
			}
			pages = append(pages, n)
		}
	}
	return pages, nil
}

// ValidateSelection はページ番号列を文書のページ数に対して検証します。
func ValidateSelection(pages []int, pageCount int) (Selection, error) {
	if len(pages) == 0 {
		return Selection{}, newError(CodeEmptySelection, "Select at least one page", nil)
	}

	seen := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		if p < 1 || p > pageCount {
			return Selection{}, newError(CodePageOutOfRange,
				fmt.Sprintf("Page %d is out of range, the document has %d pages", p, pageCount), nil)
		}
		if _, dup := seen[p]; dup {
			return Selection{}, newError(CodeDuplicatePage, fmt.Sprintf("Page %d is selected more than once", p), nil)
		}
		seen[p] = struct{}{}
	}

	return Selection{pages: append([]int(nil), pages...)}, nil
}
