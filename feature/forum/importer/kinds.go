package importer

import "forum-importer/core/reconcile"

// Entity kinds, in pipeline order.
const (
	KindUser     reconcile.Kind = "user"
	KindSection  reconcile.Kind = "section"
	KindCategory reconcile.Kind = "category"
	KindTag      reconcile.Kind = "tag"
	KindPost     reconcile.Kind = "post"
	KindPostTag  reconcile.Kind = "post_tag"
	KindComment  reconcile.Kind = "comment"
	KindVote     reconcile.Kind = "vote"
)

// Kinds returns every imported kind in pipeline order.
func Kinds() []reconcile.Kind {
	return []reconcile.Kind{
		KindUser, KindSection, KindCategory, KindTag,
		KindPost, KindPostTag, KindComment, KindVote,
	}
}
