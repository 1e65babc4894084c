package utils

import (
	"bytes"
	"fmt"

	bencode "github.com/jackpal/bencode-go"
)

// RewriteMetafile prepares a torrent metafile for upload to a tracker:
// the announce URL is replaced with the user's personal one, the info
// dictionary gets the tracker's source tag and the private flag, and
// fields tied to the source tracker are dropped. Changing the info
// dictionary intentionally changes the infohash so the two trackers see
// distinct swarms.
func RewriteMetafile(data []byte, announce, source string) ([]byte, error) {
	decoded, err := bencode.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid torrent metafile: %w", err)
	}

	meta, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("torrent metafile is not a dictionary")
	}
	info, ok := meta["info"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("torrent metafile has no info dictionary")
	}

	meta["announce"] = announce
	delete(meta, "announce-list")
	delete(meta, "url-list")
	delete(meta, "comment")

	info["source"] = source
	info["private"] = int64(1)

	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, meta); err != nil {
		return nil, fmt.Errorf("failed to encode torrent metafile: %w", err)
	}
	return buf.Bytes(), nil
}

// MetafileName returns the display name stored in a torrent metafile
func MetafileName(data []byte) (string, error) {
	decoded, err := bencode.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("invalid torrent metafile: %w", err)
	}

	meta, ok := decoded.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("torrent metafile is not a dictionary")
	}
	info, ok := meta["info"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("torrent metafile has no info dictionary")
	}
	name, ok := info["name"].(string)
	if !ok {
		return "", fmt.Errorf("torrent metafile has no name")
	}
	return name, nil
}
