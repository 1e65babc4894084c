package gazelle

import (
	"fmt"
	"strconv"
	"strings"

	"gazellekit/internal"
)

// TrackerID identifies one supported gazelle site
type TrackerID string

const (
	// RED is the redacted.sh tracker (bearer-key JSON API)
	RED TrackerID = "RED"
	// OPS is the orpheus.network tracker (bearer-token JSON API)
	OPS TrackerID = "OPS"
)

// TrackerProfile is the static descriptor for one tracker. Profiles are
// created once at package init and shared read-only between clients.
type TrackerProfile struct {
	ID               TrackerID
	Name             string
	Site             string // base URL, trailing slash included
	AnnounceTemplate string // placeholders: {authkey} {passkey} {userid} {username}
	RequestLimit     int    // max requests per rolling 10-second window

	// PlainAnnounceUser names the single account whose announce URL must
	// be rewritten to plain http. Site-specific quirk, not a general rule.
	PlainAnnounceUser string
}

var profiles = map[TrackerID]*TrackerProfile{
	RED: {
		ID:                RED,
		Name:              "RED",
		Site:              "https://redacted.sh/",
		AnnounceTemplate:  "https://flacsfor.me/{passkey}/announce",
		RequestLimit:      10,
		PlainAnnounceUser: "spine",
	},
	OPS: {
		ID:               OPS,
		Name:             "OPS",
		Site:             "https://orpheus.network/",
		AnnounceTemplate: "https://home.opsfet.ch/{passkey}/announce",
		RequestLimit:     5,
	},
}

// Profile returns the shared profile for the given tracker
func Profile(id TrackerID) (*TrackerProfile, error) {
	p, ok := profiles[id]
	if !ok {
		return nil, fmt.Errorf("unknown tracker: %s", id)
	}
	return p, nil
}

// Announce formats the announce template with the given account fields
// and applies the plain-scheme rewrite when the account matches
// PlainAnnounceUser.
func (p *TrackerProfile) Announce(acct *internal.AccountInfo) string {
	r := strings.NewReplacer(
		"{authkey}", acct.AuthKey,
		"{passkey}", acct.PassKey,
		"{userid}", strconv.Itoa(acct.UserID),
		"{username}", acct.Username,
	)
	announce := r.Replace(p.AnnounceTemplate)

	if p.PlainAnnounceUser != "" && acct.Username == p.PlainAnnounceUser {
		announce = strings.Replace(announce, "https://", "http://", 1)
	}

	return announce
}

// PermalinkTorrent returns the site URL for viewing an uploaded torrent
func (p *TrackerProfile) PermalinkTorrent(groupID, torrentID int) string {
	return fmt.Sprintf("%storrents.php?id=%d&torrentid=%d", p.Site, groupID, torrentID)
}
