package export

import (
	"sort"
	"strings"

	"github.com/t2bot/image-backup-proxy/types"
)

// SortByCreation returns a copy ordered oldest first. Records with equal (or
// unparseable) timestamps keep their listing order.
func SortByCreation(records []*types.ResourceRecord) []*types.ResourceRecord {
	sorted := make([]*types.ResourceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreationTime().Before(sorted[j].CreationTime())
	})
	return sorted
}

func SecureUrls(records []*types.ResourceRecord) []string {
	urls := make([]string, 0, len(records))
	for _, r := range records {
		urls = append(urls, r.ContentUrl())
	}
	return urls
}

type PairingRule struct {
	PrimarySuffix   string
	CompanionSuffix string
}

// PairByPrefix matches each primary record with the companion record sharing
// its public id prefix. A companion is any record whose public id ends with
// CompanionSuffix; its prefix is the public id without that suffix. Every
// other record is a primary when its public id ends with PrimarySuffix (an
// empty PrimarySuffix matches all). Only primaries with a companion are
// returned, in listing order.
func PairByPrefix(records []*types.ResourceRecord, rule PairingRule) []*types.PairedResource {
	companions := make(map[string]*types.ResourceRecord)
	for _, r := range records {
		if prefix, ok := trimSuffix(r.PublicId, rule.CompanionSuffix); ok {
			if _, exists := companions[prefix]; !exists {
				companions[prefix] = r
			}
		}
	}

	paired := make([]*types.PairedResource, 0)
	for _, r := range records {
		if _, isCompanion := trimSuffix(r.PublicId, rule.CompanionSuffix); isCompanion {
			continue
		}
		if !strings.HasSuffix(r.PublicId, rule.PrimarySuffix) {
			continue
		}
		companion, found := companions[strings.TrimSuffix(r.PublicId, rule.PrimarySuffix)]
		if !found {
			continue
		}
		description := r.Description()
		if description == "" {
			description = companion.Description()
		}
		paired = append(paired, &types.PairedResource{
			Url:          r.ContentUrl(),
			CompanionUrl: companion.ContentUrl(),
			Description:  description,
		})
	}
	return paired
}

func trimSuffix(publicId string, suffix string) (string, bool) {
	if suffix == "" || !strings.HasSuffix(publicId, suffix) {
		return "", false
	}
	return strings.TrimSuffix(publicId, suffix), true
}

// Limit keeps the last n items. Zero or less keeps everything.
func Limit[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
