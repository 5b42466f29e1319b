package repository

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"leaves-cms/internal/models"
)

// LeafScope captures the visibility parameters of a leaf query: which site,
// for which viewer, in which language, as of which instant. A zero AsOf means
// "now", but callers that need reproducible results pass a fixed timestamp.
type LeafScope struct {
	SiteID   uint
	Viewer   *models.User
	Language string

	AsOf time.Time

	// Bypass widens the result set for privileged viewers: superusers see
	// everything in the language scope, other authenticated viewers see
	// the published set plus their own leaves regardless of status or
	// expiry. With Bypass false the strict published set is returned for
	// everyone.
	Bypass bool
}

// Authenticated reports whether the scope carries a signed-in viewer.
func (s LeafScope) Authenticated() bool {
	return s.Viewer != nil
}

func (s LeafScope) asOf() time.Time {
	if s.AsOf.IsZero() {
		return time.Now().UTC()
	}
	return s.AsOf
}

const publishedCond = "leaves.status = ? AND leaves.date_published <= ? AND (leaves.date_expires IS NULL OR leaves.date_expires > ?)"

// apply translates the scope into SQL conditions on a leaves query.
func (s LeafScope) apply(db *gorm.DB) *gorm.DB {
	db = db.Joins("JOIN leaf_sites ON leaf_sites.leaf_id = leaves.id").
		Where("leaf_sites.site_id = ?", s.SiteID)

	// Translations are opt-in: without an explicit language only root
	// leaves are visible.
	if s.Language != "" {
		db = db.Where("leaves.language = ?", s.Language)
	} else {
		db = db.Where("leaves.translation_of_id IS NULL")
	}

	if s.Bypass && s.Viewer.IsSuperuser() {
		return db
	}

	asOf := s.asOf()
	if s.Bypass && s.Viewer != nil {
		return db.Where("("+publishedCond+") OR leaves.author_id = ?",
			models.StatusPublished, asOf, asOf, s.Viewer.ID)
	}

	return db.Where(publishedCond, models.StatusPublished, asOf, asOf)
}

// Includes evaluates the same predicate in process, for leaves that were
// loaded outside a scoped list query (natural-key and custom-URL lookups).
// The Sites relation must be eager-loaded.
func (s LeafScope) Includes(leaf *models.Leaf) bool {
	if leaf == nil {
		return false
	}

	if s.SiteID != 0 {
		var member bool
		for _, site := range leaf.Sites {
			if site.ID == s.SiteID {
				member = true
				break
			}
		}
		if !member {
			return false
		}
	}

	if s.Language != "" {
		if leaf.Language != s.Language {
			return false
		}
	} else if !leaf.IsRoot() {
		return false
	}

	if s.Bypass && s.Viewer.IsSuperuser() {
		return true
	}

	asOf := s.asOf()
	visible := leaf.Status == models.StatusPublished &&
		!leaf.DatePublished.After(asOf) &&
		(leaf.DateExpires == nil || asOf.Before(*leaf.DateExpires))

	if s.Bypass && s.Viewer != nil {
		return visible || leaf.AuthorID == s.Viewer.ID
	}

	return visible
}

// SortLeaves orders leaves by publish date descending with the id as a
// deterministic tie-break, matching the SQL ordering of scoped queries.
func SortLeaves(leaves []models.Leaf) {
	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].DatePublished.Equal(leaves[j].DatePublished) {
			return leaves[i].ID > leaves[j].ID
		}
		return leaves[i].DatePublished.After(leaves[j].DatePublished)
	})
}
