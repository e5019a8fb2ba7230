package tgui

import "fmt"

// PageCount returns how many pages of size hold total items (at least 1).
func PageCount(total, size int) int {
	if size <= 0 {
		size = 10
	}
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// PageLabel returns a compact pagination label. page is 1-based.
func PageLabel(page, pages, total int) string {
	if pages <= 0 {
		pages = 1
	}
	page = min(max(page, 1), pages)
	return fmt.Sprintf("page %d/%d, %d total", page, pages, total)
}

// NextHint returns the command for the following page, or "" on the last one.
func NextHint(cmd string, page, pages int) string {
	if page >= pages {
		return ""
	}
	return fmt.Sprintf("next: %s %d", cmd, page+1)
}
