package s3

import "strings"

// Object Key Layout
// =================
//
// Each volume occupies a key subtree derived from its path, so one bucket
// can hold many volumes side by side:
//
//	Key Format            Content
//	=========================================================
//	<base>/meta           root group record (JSON)
//	<base>/meta<path>     node record at internal path (JSON)
//	<base>/data<path>     raw dataset payload (binary)
//
// where <base> is the configured key prefix plus the volume path stripped
// of surrounding slashes ("grove/" + "/data/run42" → "grove/data/run42").
//
// The root record doubles as the volume-exists marker: open modes probe it
// with HeadObject, and truncation deletes the subtree and rewrites it.
//
// Listing a group scans "<base>/meta<group>/" with "/" as delimiter, so S3
// returns exactly the direct-child records, already sorted by key. Scans
// always carry the trailing slash; a bare "meta" prefix would also match
// sibling subtrees such as "<base>/metadata".

// volumeBase returns the key subtree root for a volume path.
func volumeBase(keyPrefix, volumePath string) string {
	return keyPrefix + strings.Trim(volumePath, "/")
}

// metaKey returns the node-record key for an internal path.
func metaKey(base, internalPath string) string {
	key := base
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	key += "meta"
	if internalPath != "/" {
		key += internalPath
	}
	return key
}

// dataKey returns the dataset-payload key for an internal path.
func dataKey(base, internalPath string) string {
	key := base
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	key += "data"
	if internalPath != "/" {
		key += internalPath
	}
	return key
}

// childScanPrefix returns the list prefix covering the direct children of a
// group. Used with "/" as the list delimiter.
func childScanPrefix(base, groupPath string) string {
	return metaKey(base, groupPath) + "/"
}

// childNameFromListKey extracts the direct-child name from a listed record
// key. Returns false for the occasional deeper key a delimiter-less listing
// would surface.
func childNameFromListKey(key, scanPrefix string) (string, bool) {
	remainder := strings.TrimPrefix(key, scanPrefix)
	if remainder == "" || remainder == key || strings.Contains(remainder, "/") {
		return "", false
	}
	return remainder, true
}

// purgeScanPrefixes returns the list prefixes whose objects make up a
// volume's subtree, excluding the root record itself.
func purgeScanPrefixes(base string) []string {
	return []string{
		metaKey(base, "/") + "/",
		dataKey(base, "/") + "/",
	}
}
