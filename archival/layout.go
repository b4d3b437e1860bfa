package archival

const (
	ManifestFile   = "imageList.json"
	SkippedLogFile = "skippedAssets.json"
	DetailSuffix   = ".json"
)
