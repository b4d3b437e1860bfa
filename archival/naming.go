package archival

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/t2bot/image-backup-proxy/types"
	"github.com/t2bot/image-backup-proxy/util"
)

// AssetFileName derives the archive file name for a record: the last segment
// of its delivery URL, else the last segment of its public id, else its asset
// id. When the result has no extension the record's format is appended, or
// failing that one sniffed from the content. The same record and content
// always produce the same name.
func AssetFileName(record *types.ResourceRecord, content []byte) string {
	name := util.UrlBaseName(record.ContentUrl())
	if name == "" && record.PublicId != "" {
		name = path.Base(record.PublicId)
	}
	name = sanitizeName(name)
	if name == "" {
		name = sanitizeName(record.AssetId)
	}
	if name == "" {
		name = "asset"
	}

	if path.Ext(name) == "" {
		if record.Format != "" {
			name = name + "." + sanitizeName(record.Format)
		} else if len(content) > 0 {
			name = name + mimetype.Detect(content).Extension()
		}
	}
	return name
}

func DetailFileName(assetFileName string) string {
	return assetFileName + DetailSuffix
}

// sanitizeName keeps archive entries inside their folder.
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
