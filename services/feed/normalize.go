package feed

import (
	"strings"
	"time"

	"reelfeed/models"
)

// normalize maps a raw document onto a CandidateItem using the schema's field
// table. It reports false when the document has no media reference or no
// author path segment. MediaURL may still hold an unresolved storage reference.
func normalize(doc models.RawDocument, schema SourceSchema, now time.Time) (models.CandidateItem, bool) {
	media := firstString(doc.Data, schema.MediaFields)
	if media == "" {
		return models.CandidateItem{}, false
	}
	authorID := authorFromPath(doc.Path)
	if authorID == "" {
		return models.CandidateItem{}, false
	}

	return models.CandidateItem{
		ID:              schema.IDPrefix + doc.ID,
		Source:          schema.Name,
		AuthorID:        authorID,
		AuthorName:      firstString(doc.Data, schema.AuthorNameFields),
		AuthorAvatarURL: firstString(doc.Data, schema.AvatarFields),
		MediaURL:        media,
		ThumbnailURL:    firstString(doc.Data, schema.ThumbnailFields),
		Caption:         firstString(doc.Data, schema.CaptionFields),
		LikeCount:       firstCount(doc.Data, schema.LikeFields),
		CommentCount:    firstCount(doc.Data, schema.CommentFields),
		ShareCount:      firstCount(doc.Data, schema.ShareFields),
		CreatedAt:       firstTime(doc.Data, schema.CreatedAtFields, now),
		Hashtags:        collectHashtags(doc.Data, schema.HashtagString, schema.HashtagArray),
		SourceDocPath:   doc.Path,
	}, true
}

// authorFromPath returns the parent-of-parent segment of a document path:
// users/{authorId}/performances/{docId} -> authorId.
func authorFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 {
		return ""
	}
	return segments[len(segments)-3]
}

func firstString(data map[string]interface{}, fields []string) string {
	for _, f := range fields {
		if s, ok := data[f].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstCount coerces the first present field to a count.
func firstCount(data map[string]interface{}, fields []string) int {
	for _, f := range fields {
		if v, ok := data[f]; ok && v != nil {
			return coerceCount(v)
		}
	}
	return 0
}

// coerceCount turns an array into its length and a number into itself.
// Anything else counts as zero.
func coerceCount(v interface{}) int {
	var n int
	switch val := v.(type) {
	case []interface{}:
		n = len(val)
	case []string:
		n = len(val)
	case int:
		n = val
	case int32:
		n = int(val)
	case int64:
		n = int(val)
	case float32:
		n = int(val)
	case float64:
		n = int(val)
	}
	if n < 0 {
		return 0
	}
	return n
}

func firstTime(data map[string]interface{}, fields []string, now time.Time) time.Time {
	for _, f := range fields {
		if t, ok := coerceTime(data[f]); ok {
			return t
		}
	}
	return now
}

// coerceTime accepts native timestamps, epoch milliseconds, RFC3339 strings
// and {seconds, nanoseconds} maps as exported by the Firestore SDKs.
func coerceTime(v interface{}) (time.Time, bool) {
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	case *time.Time:
		if val != nil {
			t = *val
		}
	case int64:
		t = time.UnixMilli(val)
	case int:
		t = time.UnixMilli(int64(val))
	case float64:
		t = time.UnixMilli(int64(val))
	case string:
		parsed, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return time.Time{}, false
		}
		t = parsed
	case map[string]interface{}:
		secs, ok := val["seconds"]
		if !ok {
			secs, ok = val["_seconds"]
		}
		if !ok {
			return time.Time{}, false
		}
		nanos := val["nanoseconds"]
		if nanos == nil {
			nanos = val["_nanoseconds"]
		}
		t = time.Unix(int64(coerceCount(secs)), int64(coerceCount(nanos)))
	}
	if t.IsZero() || t.Unix() <= 0 {
		return time.Time{}, false
	}
	return t, true
}

// collectHashtags merges a whitespace-delimited tag string with a tag array.
func collectHashtags(data map[string]interface{}, stringField, arrayField string) []string {
	tags := []string{}
	if s, ok := data[stringField].(string); ok {
		tags = append(tags, strings.Fields(s)...)
	}
	switch arr := data[arrayField].(type) {
	case []interface{}:
		for _, v := range arr {
			if s, ok := v.(string); ok {
				tags = appendTag(tags, s)
			}
		}
	case []string:
		for _, s := range arr {
			tags = appendTag(tags, s)
		}
	}
	return tags
}

func appendTag(tags []string, tag string) []string {
	if tag = strings.TrimSpace(tag); tag != "" {
		return append(tags, tag)
	}
	return tags
}
