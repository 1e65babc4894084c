package gazelle

import (
	"encoding/json"
	"html"
	"strings"

	"gazellekit/internal"
)

// Artist is one credited artist with its site id
type Artist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TorrentInfo is the tracker-neutral view of one torrent plus its group.
// Field availability differs slightly per tracker; the mappers normalize
// what they can.
type TorrentInfo struct {
	TorrentID int
	GroupID   int

	Title       string
	Year        int
	ReleaseType int
	VanityHouse bool

	Medium    string
	Format    string
	Encoding  string
	Remastered      bool
	RemasterYear    int
	RemasterTitle   string
	RemasterLabel   string
	RemasterCatNr   string
	Scene           bool

	Uploader   string
	UploaderID int

	FilePath string
	Files    []string

	Tags     []string
	Artists  map[string][]Artist // keyed by role: artists, with, remixedBy, ...
	ImageURL string

	GroupDescription   string
	ReleaseDescription string
}

// torrentEnvelope is the wire shape of the torrent action's response
// field, shared by both trackers
type torrentEnvelope struct {
	Group struct {
		ID              int      `json:"id"`
		Name            string   `json:"name"`
		Year            int      `json:"year"`
		ReleaseType     int      `json:"releaseType"`
		VanityHouse     bool     `json:"vanityHouse"`
		WikiImage       string   `json:"wikiImage"`
		WikiBody        string   `json:"wikiBody"`
		BBBody          string   `json:"bbBody"`
		Tags            []string `json:"tags"`
		MusicInfo       map[string][]Artist `json:"musicInfo"`
	} `json:"group"`
	Torrent struct {
		ID                      int    `json:"id"`
		Media                   string `json:"media"`
		Format                  string `json:"format"`
		Encoding                string `json:"encoding"`
		Remastered              bool   `json:"remastered"`
		RemasterYear            int    `json:"remasterYear"`
		RemasterTitle           string `json:"remasterTitle"`
		RemasterRecordLabel     string `json:"remasterRecordLabel"`
		RemasterCatalogueNumber string `json:"remasterCatalogueNumber"`
		Scene                   bool   `json:"scene"`
		Description             string `json:"description"`
		FilePath                string `json:"filePath"`
		FileList                string `json:"fileList"`
		Username                string `json:"username"`
		UserID                  int    `json:"userId"`
	} `json:"torrent"`
}

// torrentInfoMappers maps a structured torrent response into the neutral
// record, keyed by tracker identity
var torrentInfoMappers = map[TrackerID]func(json.RawMessage) (*TorrentInfo, error){
	RED: mapRedTorrentInfo,
	OPS: mapOpsTorrentInfo,
}

// mapTorrentInfo dispatches to the tracker's mapper
func mapTorrentInfo(id TrackerID, payload json.RawMessage) (*TorrentInfo, error) {
	mapper, ok := torrentInfoMappers[id]
	if !ok {
		return nil, internal.NewUnsupportedError(string(id), "torrent info mapping")
	}
	return mapper(payload)
}

// decodeTorrentEnvelope decodes the shared wire shape
func decodeTorrentEnvelope(payload json.RawMessage) (*torrentEnvelope, error) {
	var env torrentEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, internal.NewParseError("malformed torrent response").WithCause(err)
	}
	if env.Torrent.ID == 0 || env.Group.ID == 0 {
		return nil, internal.NewParseError("torrent response missing ids")
	}
	return &env, nil
}

// toInfo converts the wire shape into the neutral record. Both trackers
// HTML-escape free-text fields, so everything textual is unescaped here.
func (env *torrentEnvelope) toInfo() *TorrentInfo {
	description := env.Group.BBBody
	if description == "" {
		description = env.Group.WikiBody
	}

	artists := make(map[string][]Artist, len(env.Group.MusicInfo))
	for role, list := range env.Group.MusicInfo {
		if len(list) == 0 {
			continue
		}
		unescaped := make([]Artist, len(list))
		for i, a := range list {
			unescaped[i] = Artist{ID: a.ID, Name: html.UnescapeString(a.Name)}
		}
		artists[role] = unescaped
	}

	return &TorrentInfo{
		TorrentID:   env.Torrent.ID,
		GroupID:     env.Group.ID,
		Title:       html.UnescapeString(env.Group.Name),
		Year:        env.Group.Year,
		ReleaseType: env.Group.ReleaseType,
		VanityHouse: env.Group.VanityHouse,

		Medium:        env.Torrent.Media,
		Format:        env.Torrent.Format,
		Encoding:      env.Torrent.Encoding,
		Remastered:    env.Torrent.Remastered,
		RemasterYear:  env.Torrent.RemasterYear,
		RemasterTitle: html.UnescapeString(env.Torrent.RemasterTitle),
		RemasterLabel: html.UnescapeString(env.Torrent.RemasterRecordLabel),
		RemasterCatNr: html.UnescapeString(env.Torrent.RemasterCatalogueNumber),
		Scene:         env.Torrent.Scene,

		Uploader:   env.Torrent.Username,
		UploaderID: env.Torrent.UserID,

		FilePath: html.UnescapeString(env.Torrent.FilePath),
		Files:    parseFileList(env.Torrent.FileList),

		Tags:     env.Group.Tags,
		Artists:  artists,
		ImageURL: env.Group.WikiImage,

		GroupDescription:   html.UnescapeString(description),
		ReleaseDescription: html.UnescapeString(env.Torrent.Description),
	}
}

// parseFileList splits the torrent's file listing, which arrives as
// name{{{size}}} entries joined by |||, into plain file names
func parseFileList(raw string) []string {
	if raw == "" {
		return nil
	}
	var names []string
	for _, entry := range strings.Split(raw, "|||") {
		name := entry
		if i := strings.Index(entry, "{{{"); i >= 0 {
			name = entry[:i]
		}
		names = append(names, html.UnescapeString(name))
	}
	return names
}

// mapRedTorrentInfo maps RED's torrent response
func mapRedTorrentInfo(payload json.RawMessage) (*TorrentInfo, error) {
	env, err := decodeTorrentEnvelope(payload)
	if err != nil {
		return nil, err
	}
	return env.toInfo(), nil
}

// mapOpsTorrentInfo maps OPS's torrent response. OPS reports unconfirmed
// editions with a remaster year of zero; normalize that to the group year
// so announce building and re-uploads see a usable edition.
func mapOpsTorrentInfo(payload json.RawMessage) (*TorrentInfo, error) {
	env, err := decodeTorrentEnvelope(payload)
	if err != nil {
		return nil, err
	}
	info := env.toInfo()
	if info.Remastered && info.RemasterYear == 0 {
		info.RemasterYear = info.Year
	}
	return info, nil
}
