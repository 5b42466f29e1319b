package service

import (
	"errors"
	"fmt"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/pkg/utils"
)

var (
	ErrCustomURLTaken = errors.New("custom URL is already taken for this language")
	ErrUnknownSite    = errors.New("one or more site ids do not exist")
)

// leafWriter bundles the collaborators both concrete content services need
// when they build or update the shared leaf row.
type leafWriter struct {
	leafRepo repository.LeafRepository
	siteRepo repository.SiteRepository
	tagRepo  repository.TagRepository

	defaultStatus string
}

// applyFields copies the shared publishable fields onto the leaf. Used for
// both create and update; on create the leaf starts zero-valued and the
// defaults below fill the gaps.
func (w *leafWriter) applyFields(leaf *models.Leaf, fields models.LeafFields) error {
	sites, err := w.resolveSites(fields.SiteIDs)
	if err != nil {
		return err
	}
	leaf.Sites = sites

	if fields.Status != "" {
		leaf.Status = fields.Status
	} else if leaf.Status == "" {
		leaf.Status = w.defaultStatus
	}

	leaf.AuthorName = fields.AuthorName
	if fields.ShowInStream != nil {
		leaf.ShowInStream = *fields.ShowInStream
	}
	if fields.AllowComments != nil {
		leaf.AllowComments = *fields.AllowComments
	}
	leaf.Password = fields.Password

	if fields.DatePublished != nil {
		leaf.DatePublished = fields.DatePublished.UTC()
	}
	leaf.DateExpires = fields.DateExpires
	if leaf.DateExpires != nil && !leaf.DatePublished.IsZero() &&
		!leaf.DateExpires.After(leaf.DatePublished) {
		return errors.New("expiry date must be after the publish date")
	}

	if fields.Changefreq != "" {
		leaf.Changefreq = fields.Changefreq
	}
	if fields.Priority != nil {
		leaf.Priority = *fields.Priority
	}

	if fields.Language != "" {
		leaf.Language = fields.Language
	}
	if err := w.applyTranslation(leaf, fields); err != nil {
		return err
	}
	leaf.TranslatorName = fields.TranslatorName

	customURL := NormalizeCustomURL(fields.CustomURL)
	if customURL != "" {
		taken, err := w.leafRepo.ExistsByCustomURL(leaf.Language, customURL, leaf.ID)
		if err != nil {
			return fmt.Errorf("failed to check custom URL: %w", err)
		}
		if taken {
			return ErrCustomURLTaken
		}
	}
	leaf.CustomURL = customURL

	leaf.SummaryTemplate = fields.SummaryTemplate
	leaf.PageTemplate = fields.PageTemplate

	tags, err := w.resolveTags(fields.TagSlugs)
	if err != nil {
		return err
	}
	leaf.Tags = tags

	return nil
}

func (w *leafWriter) applyTranslation(leaf *models.Leaf, fields models.LeafFields) error {
	if fields.TranslationOfID == nil {
		leaf.TranslationOfID = nil
		return nil
	}

	if leaf.ID != 0 && *fields.TranslationOfID == leaf.ID {
		return errors.New("a leaf cannot be its own translation")
	}

	root, err := w.leafRepo.GetByID(*fields.TranslationOfID)
	if err != nil {
		return fmt.Errorf("translation source not found: %w", err)
	}
	if !root.IsRoot() {
		return errors.New("translations must point at a root leaf, not another translation")
	}
	leaf.TranslationOfID = fields.TranslationOfID
	return nil
}

func (w *leafWriter) resolveSites(siteIDs []uint) ([]models.Site, error) {
	sites := make([]models.Site, 0, len(siteIDs))
	for _, id := range siteIDs {
		site, err := w.siteRepo.GetByID(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %d", ErrUnknownSite, id)
		}
		sites = append(sites, *site)
	}
	return sites, nil
}

func (w *leafWriter) resolveTags(slugs []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, name := range slugs {
		slug := utils.GenerateSlug(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		tag, err := w.tagRepo.GetOrCreate(name, slug)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}
