package sheets

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidURL is returned for sharing URLs without a sheet ID.
var ErrInvalidURL = errors.New("invalid Google Sheets URL")

// Ref identifies one tab of a spreadsheet.
type Ref struct {
	ID  string
	GID int
}

// ParseURL extracts the sheet ID and tab GID from a sharing URL such as
//
//	https://docs.google.com/spreadsheets/d/<id>/edit?gid=0#gid=0
//
// The GID is taken from the query, then the fragment, and defaults to 0.
func ParseURL(raw string) (Ref, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %s: %w", ErrInvalidURL, raw, err)
	}

	parts := strings.Split(u.Path, "/")
	id := ""
	for i, p := range parts {
		if p == "d" && i+1 < len(parts) {
			id = parts[i+1]
			break
		}
	}
	if id == "" {
		return Ref{}, fmt.Errorf("%w: %s: cannot find sheet ID", ErrInvalidURL, raw)
	}

	gidStr := u.Query().Get("gid")
	if gidStr == "" {
		if frag, err := url.ParseQuery(u.Fragment); err == nil {
			gidStr = frag.Get("gid")
		}
	}
	gid := 0
	if gidStr != "" {
		gid, err = strconv.Atoi(gidStr)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %s: gid %q is not a number", ErrInvalidURL, raw, gidStr)
		}
	}

	return Ref{ID: id, GID: gid}, nil
}
