package notify

import "kosoku-tracker/models"

// StartupSummary aggregates the subscriptions behind one webhook destination
// for the one-time startup notification.
type StartupSummary struct {
	WebhookURL string
	Users      int
	Routes     int
}

// SummarizeStartup groups active subscriptions by webhook URL, counting
// distinct users and distinct routes per destination. Order follows the
// first appearance of each webhook in the input, so the startup messages are
// deterministic for a given subscription list.
func SummarizeStartup(subs []*models.Subscription) []StartupSummary {
	type group struct {
		users  map[string]struct{}
		routes map[string]struct{}
	}

	groups := make(map[string]*group)
	var order []string

	for _, s := range subs {
		if s.WebhookURL == "" {
			continue
		}
		g, ok := groups[s.WebhookURL]
		if !ok {
			g = &group{
				users:  make(map[string]struct{}),
				routes: make(map[string]struct{}),
			}
			groups[s.WebhookURL] = g
			order = append(order, s.WebhookURL)
		}
		g.users[s.UserName] = struct{}{}
		g.routes[s.RouteID] = struct{}{}
	}

	summaries := make([]StartupSummary, 0, len(order))
	for _, url := range order {
		g := groups[url]
		summaries = append(summaries, StartupSummary{
			WebhookURL: url,
			Users:      len(g.users),
			Routes:     len(g.routes),
		})
	}
	return summaries
}
