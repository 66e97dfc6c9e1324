package feed

// SourceSchema maps one content collection's raw field names onto CandidateItem.
// Field lists are tried in order; the first usable value wins.
type SourceSchema struct {
	Name            string
	CollectionGroup string
	OrderField      string
	IDPrefix        string

	MediaFields      []string
	ThumbnailFields  []string
	CaptionFields    []string
	LikeFields       []string
	CommentFields    []string
	ShareFields      []string
	CreatedAtFields  []string
	HashtagString    string
	HashtagArray     string
	AuthorNameFields []string
	AvatarFields     []string
}

// PerformanceSchema describes users/{uid}/performances/{id} documents.
var PerformanceSchema = SourceSchema{
	Name:             "performances",
	CollectionGroup:  "performances",
	OrderField:       "createdAt",
	IDPrefix:         "perf_",
	MediaFields:      []string{"videoUrl", "mediaUrl"},
	ThumbnailFields:  []string{"thumbnailUrl", "thumbnail"},
	CaptionFields:    []string{"caption", "description"},
	LikeFields:       []string{"likes"},
	CommentFields:    []string{"comments"},
	ShareFields:      []string{"shares"},
	CreatedAtFields:  []string{"createdAt"},
	HashtagString:    "tags",
	HashtagArray:     "hashtags",
	AuthorNameFields: []string{"authorName", "userName"},
	AvatarFields:     []string{"authorAvatar", "userAvatar"},
}

// PublicationSchema describes legacy users/{uid}/publication/{id} documents.
var PublicationSchema = SourceSchema{
	Name:             "publication",
	CollectionGroup:  "publication",
	OrderField:       "datePublication",
	IDPrefix:         "pub_",
	MediaFields:      []string{"urlVideo", "videoUrl"},
	ThumbnailFields:  []string{"urlMiniature", "thumbnailUrl"},
	CaptionFields:    []string{"texte", "description"},
	LikeFields:       []string{"likes", "nbLikes"},
	CommentFields:    []string{"commentaires", "nbCommentaires"},
	ShareFields:      []string{"partages", "nbPartages"},
	CreatedAtFields:  []string{"datePublication", "createdAt"},
	HashtagString:    "hashtagsTexte",
	HashtagArray:     "hashtags",
	AuthorNameFields: []string{"nomAuteur"},
	AvatarFields:     []string{"photoAuteur"},
}

// DefaultSchemas lists the sources read by every aggregation pass, in output order.
var DefaultSchemas = []SourceSchema{PerformanceSchema, PublicationSchema}

// AuthorSchema maps users/{uid} documents onto AuthorIdentity.
var AuthorSchema = struct {
	Collection   string
	NameFields   []string
	AvatarFields []string
}{
	Collection:   "users",
	NameFields:   []string{"displayName", "name", "username"},
	AvatarFields: []string{"photoURL", "avatarUrl", "profileImage"},
}

// UnknownCreator is shown when an author's identity cannot be resolved.
const UnknownCreator = "Unknown creator"
