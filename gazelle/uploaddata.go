package gazelle

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"gazellekit/internal"
	"gazellekit/utils"
)

// UploadData is the logical release description an upload is built from.
// FormValues turns it into the tracker's upload form; group-level fields
// are skipped when the upload targets an existing group.
type UploadData struct {
	ReleaseType      int
	Title            string
	Year             int
	VanityHouse      bool
	GroupDescription string

	Medium        string
	Format        string
	Encoding      string
	OtherBitrate  string
	VBR           bool
	RemasterYear  int
	RemasterTitle string
	RemasterLabel string
	RemasterCatNr string
	Scene         bool
	Unknown       bool

	Artists  map[string][]string // role → names, roles as in TorrentInfo.Artists
	Tags     []string
	ImageURL string

	ReleaseDescription string
}

// artistImportance maps music-info roles onto the upload form's
// importance codes
var artistImportance = map[string]string{
	"artists":   "1",
	"with":      "2",
	"remixedBy": "3",
	"composers": "4",
	"conductor": "5",
	"dj":        "6",
	"producer":  "7",
}

// FormValues builds the gazelle upload form for the given tracker.
// destGroup, when non-zero, targets an existing torrent group and
// suppresses the group-level fields.
func (d *UploadData) FormValues(_ TrackerID, destGroup int) url.Values {
	form := url.Values{}

	if destGroup != 0 {
		form.Set("groupid", strconv.Itoa(destGroup))
	} else {
		form.Set("type", "0") // music category
		form.Set("title", d.Title)
		form.Set("year", strconv.Itoa(d.Year))
		form.Set("releasetype", strconv.Itoa(d.ReleaseType))
		form.Set("tags", d.TagString())
		if d.ImageURL != "" {
			form.Set("image", d.ImageURL)
		}
		if d.GroupDescription != "" {
			form.Set("album_desc", d.GroupDescription)
		}
		if d.VanityHouse {
			form.Set("vanity_house", "1")
		}

		for role, names := range d.Artists {
			importance, ok := artistImportance[role]
			if !ok {
				continue
			}
			for _, name := range names {
				form.Add("artists[]", name)
				form.Add("importance[]", importance)
			}
		}
	}

	form.Set("format", d.Format)
	form.Set("bitrate", d.Encoding)
	form.Set("media", d.Medium)
	if d.Encoding == "Other" {
		form.Set("other_bitrate", d.OtherBitrate)
		if d.VBR {
			form.Set("vbr", "on")
		}
	}

	if d.RemasterYear != 0 {
		form.Set("remaster", "on")
		form.Set("remaster_year", strconv.Itoa(d.RemasterYear))
		form.Set("remaster_title", d.RemasterTitle)
		form.Set("remaster_record_label", d.RemasterLabel)
		form.Set("remaster_catalogue_number", d.RemasterCatNr)
	}

	if d.Scene {
		form.Set("scene", "on")
	}
	if d.Unknown {
		form.Set("unknown", "1")
	}
	if d.ReleaseDescription != "" {
		form.Set("release_desc", d.ReleaseDescription)
	}

	return form
}

// decadeRe matches decade tags like 1970s or 2000s
var decadeRe = regexp.MustCompile(`^((19|20)\d)0s$`)

// Release types whose own decade tag is redundant with the group year
const (
	releaseTypeAlbum  = 1
	releaseTypeEP     = 5
	releaseTypeSingle = 9
)

// TagString joins the tags comma-separated, dropping the decade tag that
// merely restates the release year, and truncates at the last comma
// before 200 characters (the form field's limit).
func (d *UploadData) TagString() string {
	skipDecade := d.ReleaseType == releaseTypeAlbum ||
		d.ReleaseType == releaseTypeEP ||
		d.ReleaseType == releaseTypeSingle

	var kept []string
	for _, tag := range d.Tags {
		if skipDecade {
			if m := decadeRe.FindStringSubmatch(tag); m != nil {
				year := strconv.Itoa(d.Year)
				if len(year) >= 3 && m[1] == year[:3] {
					continue
				}
			}
		}
		kept = append(kept, tag)
	}
	if len(kept) == 0 {
		kept = d.Tags
	}

	tagString := strings.Join(kept, ",")
	if len(tagString) > 200 {
		if cut := strings.LastIndex(tagString[:201], ","); cut > 0 {
			tagString = tagString[:cut]
		}
	}
	return tagString
}

// FromTorrentInfo seeds upload data from a fetched torrent record. Group
// fields are copied regardless; the caller decides whether a destination
// group suppresses them at form-building time.
func FromTorrentInfo(info *TorrentInfo) *UploadData {
	artists := make(map[string][]string, len(info.Artists))
	for role, list := range info.Artists {
		names := make([]string, len(list))
		for i, a := range list {
			names[i] = a.Name
		}
		artists[role] = names
	}

	return &UploadData{
		ReleaseType:      info.ReleaseType,
		Title:            info.Title,
		Year:             info.Year,
		VanityHouse:      info.VanityHouse,
		GroupDescription: info.GroupDescription,

		Medium:        info.Medium,
		Format:        info.Format,
		Encoding:      info.Encoding,
		RemasterYear:  info.RemasterYear,
		RemasterTitle: info.RemasterTitle,
		RemasterLabel: info.RemasterLabel,
		RemasterCatNr: info.RemasterCatNr,
		Scene:         info.Scene,

		Artists:  artists,
		Tags:     info.Tags,
		ImageURL: info.ImageURL,

		ReleaseDescription: info.ReleaseDescription,
	}
}

// RipLogFile is one CD rip log attached to an upload
type RipLogFile struct {
	Name string
	Data []byte
}

// TorrentFiles is the file side of an upload: the torrent metafile plus
// any rip logs
type TorrentFiles struct {
	TorrentName string
	Torrent     []byte
	RipLogs     []RipLogFile
}

// FileList rewrites the metafile for the destination tracker (announce
// URL, source tag, private flag) and assembles the multipart file list
func (f *TorrentFiles) FileList(announce, trackerName string) ([]internal.FileUpload, error) {
	rewritten, err := utils.RewriteMetafile(f.Torrent, announce, trackerName)
	if err != nil {
		return nil, err
	}

	files := []internal.FileUpload{{
		Field:    "file_input",
		Filename: f.TorrentName,
		Data:     rewritten,
	}}
	for _, log := range f.RipLogs {
		files = append(files, internal.FileUpload{
			Field:    "logfiles[]",
			Filename: log.Name,
			Data:     log.Data,
		})
	}
	return files, nil
}
