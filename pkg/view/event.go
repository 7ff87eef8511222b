package view

import (
	"sort"
	"strings"

	"github.com/aretw0/webflow/pkg/external"
)

// EventIDParameter is the request parameter carrying the user event id.
const EventIDParameter = "_eventId"

// FindEventID returns the user event id of a request, or "" when there is none.
// An explicit _eventId parameter wins over button parameters. Image buttons post
// "name.x" and "name.y"; the coordinate suffix is ignored.
func FindEventID(params *external.ParameterMap) string {
	if v := params.Get(EventIDParameter); v != "" {
		return v
	}
	prefix := EventIDParameter + "_"
	names := params.Names()
	sort.Strings(names)
	for _, name := range names {
		if id, ok := strings.CutPrefix(name, prefix); ok && id != "" {
			id = strings.TrimSuffix(strings.TrimSuffix(id, ".x"), ".y")
			return id
		}
	}
	return ""
}
