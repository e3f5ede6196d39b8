// Package cachepolicy implements ParqueDB's cache TTL table, HTTP cache
// header generation, staleness checks, and the versioned/range cache key
// format shared by the query executor and the cache invalidator (§4.J).
package cachepolicy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResourceType names one of the cacheable artifact kinds a policy preset
// assigns a TTL to.
type ResourceType string

const (
	TypeData     ResourceType = "data"
	TypeMetadata ResourceType = "metadata"
	TypeBloom    ResourceType = "bloom"
	TypeIndex    ResourceType = "index"
	TypeSchema   ResourceType = "schema"
)

// TTLs is one preset's TTL table plus whether stale-while-revalidate
// applies and its window.
type TTLs struct {
	Data               time.Duration
	Metadata           time.Duration
	Bloom              time.Duration
	StaleWhileRevalidate bool
	SWRWindow          time.Duration
}

func (t TTLs) forType(rt ResourceType) time.Duration {
	switch rt {
	case TypeData, TypeIndex:
		return t.Data
	case TypeMetadata, TypeSchema:
		return t.Metadata
	case TypeBloom:
		return t.Bloom
	default:
		return t.Data
	}
}

// Default is §4.J's baseline preset: data 60s, metadata 300s, bloom 600s,
// SWR enabled with a window equal to the data TTL (60s).
var Default = TTLs{
	Data:                 60 * time.Second,
	Metadata:             300 * time.Second,
	Bloom:                600 * time.Second,
	StaleWhileRevalidate: true,
	SWRWindow:            60 * time.Second,
}

// ReadHeavy multiplies Default's TTLs by 5, for workloads dominated by
// find()/get() traffic against rarely-changing namespaces.
var ReadHeavy = TTLs{
	Data:                 Default.Data * 5,
	Metadata:             Default.Metadata * 5,
	Bloom:                Default.Bloom * 5,
	StaleWhileRevalidate: true,
	SWRWindow:            Default.Data * 5,
}

// WriteHeavy divides Default's TTLs by 4 and disables stale-while-revalidate,
// favoring freshness over hit rate for namespaces under heavy write load.
var WriteHeavy = TTLs{
	Data:                 Default.Data / 4,
	Metadata:             Default.Metadata / 4,
	Bloom:                Default.Bloom / 4,
	StaleWhileRevalidate: false,
}

// NoCache disables caching entirely: every TTL is zero and SWR is off.
var NoCache = TTLs{}

// Headers is the set of HTTP response headers getCacheHeaders computes.
type Headers struct {
	CacheControl   string
	ContentType    string
	ETag           string
	CacheType      string // X-ParqueDB-Cache-Type
	CacheTTL       string // X-ParqueDB-Cache-TTL, seconds
}

// Set copies h's fields onto a net/http-compatible header map (any type
// with Set(key, value string), e.g. http.Header).
func (h Headers) Set(dst interface{ Set(string, string) }) {
	dst.Set("Cache-Control", h.CacheControl)
	dst.Set("Content-Type", h.ContentType)
	if h.ETag != "" {
		dst.Set("ETag", h.ETag)
	}
	dst.Set("X-ParqueDB-Cache-Type", h.CacheType)
	dst.Set("X-ParqueDB-Cache-TTL", h.CacheTTL)
}

// Meta carries the optional per-response details GetCacheHeaders folds in.
type Meta struct {
	ETag string
	Size int64
}

func contentTypeFor(rt ResourceType) string {
	switch rt {
	case TypeData, TypeBloom, TypeIndex:
		return "application/octet-stream"
	case TypeMetadata, TypeSchema:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// GetCacheHeaders builds the HTTP cache headers for one resource type under
// preset (§4.J). A zero TTL renders `Cache-Control: no-store`.
func GetCacheHeaders(preset TTLs, rt ResourceType, meta Meta) Headers {
	ttl := preset.forType(rt)
	h := Headers{
		ContentType: contentTypeFor(rt),
		ETag:        meta.ETag,
		CacheType:   string(rt),
		CacheTTL:    strconv.FormatFloat(ttl.Seconds(), 'f', -1, 64),
	}
	if ttl <= 0 {
		h.CacheControl = "no-store"
		return h
	}
	parts := []string{"public", fmt.Sprintf("max-age=%d", int(ttl.Seconds()))}
	if preset.StaleWhileRevalidate && preset.SWRWindow > 0 {
		parts = append(parts, fmt.Sprintf("stale-while-revalidate=%d", int(preset.SWRWindow.Seconds())))
	}
	h.CacheControl = strings.Join(parts, ", ")
	return h
}

// ShouldRevalidate reports whether a cached response of the given age
// against maxAge has crossed the 80% revalidation threshold.
func ShouldRevalidate(age, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	return float64(age) >= 0.8*float64(maxAge)
}

// IsStale reports whether age has exceeded maxAge outright.
func IsStale(age, maxAge time.Duration) bool {
	return age > maxAge
}

// CanUseWhileStale reports whether a stale response (age > maxAge) still
// falls within the stale-while-revalidate grace window.
func CanUseWhileStale(age, maxAge, swrWindow time.Duration) bool {
	if !IsStale(age, maxAge) {
		return false
	}
	return age <= maxAge+swrWindow
}

// CacheKey builds the versioned, optionally byte-ranged cache key format
// base(path) + ('?v=' + version)? + ('#' + start + '-' + end)? (§4.J).
func CacheKey(path string, version uint64, byteRange *[2]int64) string {
	k := path
	if version > 0 {
		k += "?v=" + strconv.FormatUint(version, 10)
	}
	if byteRange != nil {
		k += fmt.Sprintf("#%d-%d", byteRange[0], byteRange[1])
	}
	return k
}

// ParseCacheKey inverts CacheKey, splitting out the base path, version (0
// if absent), and byte range (nil if absent).
func ParseCacheKey(key string) (path string, version uint64, byteRange *[2]int64) {
	rest := key
	if hash := strings.IndexByte(rest, '#'); hash >= 0 {
		rangePart := rest[hash+1:]
		rest = rest[:hash]
		if dash := strings.IndexByte(rangePart, '-'); dash >= 0 {
			start, errA := strconv.ParseInt(rangePart[:dash], 10, 64)
			end, errB := strconv.ParseInt(rangePart[dash+1:], 10, 64)
			if errA == nil && errB == nil {
				byteRange = &[2]int64{start, end}
			}
		}
	}
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		query := rest[q+1:]
		rest = rest[:q]
		if strings.HasPrefix(query, "v=") {
			if v, err := strconv.ParseUint(query[2:], 10, 64); err == nil {
				version = v
			}
		}
	}
	return rest, version, byteRange
}
