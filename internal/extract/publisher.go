// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import "strings"

// PublisherUnknown is returned when no imprint marker is present.
const PublisherUnknown = "unknown"

// publisherMarkers are checked in order; the first publisher with a marker
// in the text wins. Markers are lowercase.
var publisherMarkers = []struct {
	name    string
	markers []string
}{
	{"nejm", []string{"n engl j med", "nejm", "massachusetts medical society"}},
	{"nature", []string{"nature publishing group", "springer nature", "www.nature.com"}},
	{"science", []string{"science magazine", "aaas", "www.sciencemag.org"}},
	{"elsevier", []string{"elsevier", "sciencedirect", "www.elsevier.com"}},
	{"lancet", []string{"the lancet", "www.thelancet.com"}},
	{"bmj", []string{"bmj publishing group", "british medical journal", "www.bmj.com"}},
	{"jama", []string{"jama", "american medical association"}},
	{"wiley", []string{"john wiley", "wiley online library"}},
	{"springer", []string{"springer", "link.springer.com"}},
	{"oxford", []string{"oxford university press", "oxford academic"}},
	{"cell", []string{"cell press", "www.cell.com"}},
	{"plos", []string{"plos", "public library of science"}},
	{"mdpi", []string{"mdpi", "www.mdpi.com"}},
	{"frontiers", []string{"frontiers", "www.frontiersin.org"}},
	{"ieee", []string{"ieee", "institute of electrical"}},
	{"acm", []string{"acm", "association for computing"}},
}

// DetectPublisher names the publisher whose imprint appears in text.
func DetectPublisher(text string) string {
	lower := strings.ToLower(text)
	for _, p := range publisherMarkers {
		for _, m := range p.markers {
			if strings.Contains(lower, m) {
				return p.name
			}
		}
	}
	return PublisherUnknown
}
