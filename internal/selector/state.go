// Package selector はクライアント側のページ選択（ファイル読み込み、ページの選択、送信）を提供します。
//
// State は不変の値で、各操作は新しい State を返します。
package selector

import (
	"errors"
	"fmt"
	"slices"
)

// ボタン表示
const (
	LabelSelectFile  = "Select PDF file"
	LabelSelectPages = "Select at least one page to continue"
	LabelDownload    = "Download Modified PDF"
)

var (
	// ErrNoFile はファイルが読み込まれていないことを表します。
	ErrNoFile = errors.New("no PDF file selected")
	// ErrEmptySelection はページが一つも選択されていないことを表します。
	ErrEmptySelection = errors.New("no pages selected")
	// ErrPageOutOfRange は文書に存在しないページを指定したことを表します。
	ErrPageOutOfRange = errors.New("page out of range")
)

// Document はクライアントが読み込んだPDFです。
type Document struct {
	Name      string
	Data      []byte
	PageCount int
}

// State は選択中のファイルとページを表します。
type State struct {
	doc      *Document
	selected []int
}

// Load は文書を読み込んだ状態を返します。選択はクリアされます。
func (s State) Load(doc Document) State {
	return State{doc: &doc}
}

// Toggle はページを選択（included=true）または解除します。
// 選択順は保持され、選択済みページの再選択は何もしません。
func (s State) Toggle(page int, included bool) (State, error) {
	if s.doc == nil {
		return s, ErrNoFile
	}
	if page < 1 || page > s.doc.PageCount {
		return s, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, s.doc.PageCount)
	}

	idx := slices.Index(s.selected, page)
	next := State{doc: s.doc, selected: slices.Clone(s.selected)}
	switch {
	case included && idx < 0:
		next.selected = append(next.selected, page)
	case !included && idx >= 0:
		next.selected = slices.Delete(next.selected, idx, idx+1)
	}
	return next, nil
}

// Reset は初期状態を返します。
func (s State) Reset() State { return State{} }

// Document は読み込み済みの文書を返します。
func (s State) Document() (Document, bool) {
	if s.doc == nil {
		return Document{}, false
	}
	return *s.doc, true
}

// PageCount は読み込み済み文書のページ数を返します（未読み込みなら0）。
func (s State) PageCount() int {
	if s.doc == nil {
		return 0
	}
	return s.doc.PageCount
}

// Selected はページが選択されているかを返します。
func (s State) Selected(page int) bool {
	return slices.Contains(s.selected, page)
}

// Selection は選択されたページ番号（1-based）を選択順に返します。
func (s State) Selection() []int {
	return slices.Clone(s.selected)
}

// Ready は送信できる状態かどうかを返します。
func (s State) Ready() bool {
	return s.doc != nil && len(s.selected) > 0
}

// ButtonLabel は現在の状態に応じた送信ボタンの表示を返します。
func (s State) ButtonLabel() string {
	switch {
	case s.doc == nil:
		return LabelSelectFile
	case len(s.selected) == 0:
		return LabelSelectPages
	default:
		return LabelDownload
	}
}
