package history

import "sort"

// SessionView groups the stored messages of one session for display.
type SessionView struct {
	SessionID string    `json:"session_id"`
	Records   []Message `json:"records"`
}

// Sessions rebuilds the full conversation history from a single forward scan
// of the store: records are grouped by session in first-seen scan order, each
// group is ordered by timestamp ascending (the scan's id order breaks ties,
// which a stable sort preserves), and the group list is ordered by each
// session's first timestamp descending, most recent session first.
//
// This is a pure projection; it never mutates the store. A degraded or empty
// store yields nil — the two cases are deliberately indistinguishable here.
func (s *Store) Sessions() []SessionView {
	records := s.ScanAll()
	if len(records) == 0 {
		return nil
	}

	index := make(map[string]int)
	var views []SessionView
	for _, m := range records {
		i, seen := index[m.SessionID]
		if !seen {
			i = len(views)
			index[m.SessionID] = i
			views = append(views, SessionView{SessionID: m.SessionID})
		}
		views[i].Records = append(views[i].Records, m)
	}

	for i := range views {
		recs := views[i].Records
		sort.SliceStable(recs, func(a, b int) bool {
			return recs[a].Timestamp < recs[b].Timestamp
		})
	}
	sort.SliceStable(views, func(a, b int) bool {
		return views[a].Records[0].Timestamp > views[b].Records[0].Timestamp
	})
	return views
}
