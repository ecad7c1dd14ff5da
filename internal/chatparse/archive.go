package chatparse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
)

// maxEntrySize caps how much of a single archive entry is read into memory.
const maxEntrySize = 256 << 20

var metaThreadRe = regexp.MustCompile(`messages/inbox/.+/message_\d+\.json$`)

func openArchive(data []byte) (*zip.Reader, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	return r, nil
}

// entryNames returns the lower-cased names of all regular files in r.
func entryNames(r *zip.Reader) []string {
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, strings.ToLower(f.Name))
	}
	return names
}

// findEntry returns the first file whose lower-cased name satisfies match.
func findEntry(r *zip.Reader, match func(lower string) bool) *zip.File {
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if match(strings.ToLower(f.Name)) {
			return f
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

func isTelegramResult(lower string) bool { return strings.HasSuffix(lower, "result.json") }
func isSnapchatHistory(lower string) bool {
	return strings.Contains(lower, "chat_history.json")
}
func isMetaThreadFile(lower string) bool { return metaThreadRe.MatchString(lower) }

// metaThreadGroup is one conversation folder inside a Meta archive. Long
// conversations are split across message_1.json, message_2.json, ...
type metaThreadGroup struct {
	Dir   string
	Files []*zip.File
}

// metaThreads groups Meta inbox entries by their thread folder, sorted by
// folder name so selection is deterministic.
func metaThreads(r *zip.Reader) []metaThreadGroup {
	byDir := make(map[string]*metaThreadGroup)
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isMetaThreadFile(strings.ToLower(f.Name)) {
			continue
		}
		dir := path.Dir(f.Name)
		g, ok := byDir[dir]
		if !ok {
			g = &metaThreadGroup{Dir: dir}
			byDir[dir] = g
		}
		g.Files = append(g.Files, f)
	}

	groups := make([]metaThreadGroup, 0, len(byDir))
	for _, g := range byDir {
		sort.Slice(g.Files, func(i, j int) bool { return g.Files[i].Name < g.Files[j].Name })
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Dir < groups[j].Dir })
	return groups
}

// metaAppFromPath guesses Instagram vs Messenger from archive paths.
func metaAppFromPath(names ...string) SourceApp {
	for _, n := range names {
		n = strings.ToLower(n)
		if strings.Contains(n, "instagram") {
			return AppInstagram
		}
	}
	for _, n := range names {
		n = strings.ToLower(n)
		if strings.Contains(n, "facebook") || strings.Contains(n, "messenger") {
			return AppMessenger
		}
	}
	return AppUnknown
}
