package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/timmy/ottgen/internal/domain"
	"github.com/timmy/ottgen/internal/gateway"
	"github.com/timmy/ottgen/internal/logger"
	"github.com/timmy/ottgen/internal/prompts"
)

const (
	recentGeneratedWindow = 12
	recentTitleLimit      = 8
)

// repetitionGuard carries the anti-repetition hints for one payload.
type repetitionGuard struct {
	AvoidPhrases     string
	RecentTitles     string
	WritingDirection string
}

// nextStyleRecipe returns the recipe under the persisted cursor and advances it by one.
func (o *Orchestrator) nextStyleRecipe(ctx context.Context) (prompts.StyleRecipe, error) {
	cursor, err := o.store.GetStateInt(ctx, domain.StateKeyStyleRecipeCursor, 0)
	if err != nil {
		return prompts.StyleRecipe{}, err
	}
	if err := o.store.SetState(ctx, domain.StateKeyStyleRecipeCursor, strconv.Itoa(cursor+1)); err != nil {
		return prompts.StyleRecipe{}, err
	}
	return prompts.RecipeAt(cursor), nil
}

func (o *Orchestrator) buildRepetitionGuard(ctx context.Context) (repetitionGuard, error) {
	recent, err := o.store.ListRecentGenerated(ctx, recentGeneratedWindow)
	if err != nil {
		return repetitionGuard{}, err
	}

	titles := make([]string, 0, recentTitleLimit)
	for _, c := range recent {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			continue
		}
		titles = append(titles, title)
		if len(titles) == recentTitleLimit {
			break
		}
	}

	recentTitles := prompts.NoRecentTitles
	if len(titles) > 0 {
		recentTitles = strings.Join(titles, ", ")
	}
	return repetitionGuard{
		AvoidPhrases:     strings.Join(prompts.RepetitivePhrases, ", "),
		RecentTitles:     recentTitles,
		WritingDirection: prompts.WritingDirection,
	}, nil
}

// assemblePayload builds the downstream request for c. Every call advances
// the style cursor, whether or not the submission later succeeds.
func (o *Orchestrator) assemblePayload(ctx context.Context, c *domain.Candidate) (*gateway.Payload, error) {
	style, err := o.nextStyleRecipe(ctx)
	if err != nil {
		return nil, err
	}
	guard, err := o.buildRepetitionGuard(ctx)
	if err != nil {
		return nil, err
	}

	images := make([]gateway.Image, 0, len(c.StillURLs)+1)
	if c.PosterURL != "" {
		images = append(images, gateway.Image{URL: c.PosterURL, Type: gateway.ImageTypePoster})
	}
	for _, u := range c.StillURLs {
		images = append(images, gateway.Image{URL: u, Type: gateway.ImageTypeStill})
	}

	original := strings.TrimSpace(c.OriginalOverview)
	enriched := strings.TrimSpace(c.EnrichedOverview)

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldCandidateID: c.ID,
		logger.FieldCatalogID:   c.CatalogID,
		"style":                 style.Name,
	}).Info("Payload assembled")

	gen := o.cfg.Generation
	return &gateway.Payload{
		ContentType:    gateway.ContentTypeOTT,
		PromptTemplate: prompts.ComposeTemplate(gen.PromptTemplate),
		PromptVariables: map[string]string{
			"title":             c.Title,
			"overview":          c.Overview,
			"original_overview": original,
			"enriched_overview": enriched,
			"overview_context":  prompts.OverviewContext(original, enriched),
			"rating":            c.Rating,
			"genres":            c.Genres,
			"year":              c.ReleaseYear,
			"style_recipe_name": style.Name,
			"style_intro":       style.IntroStyle,
			"style_flow":        style.SectionFlow,
			"style_ending":      style.EndingStyle,
			"emoji_pool":        style.EmojiPool,
			"avoid_phrases":     guard.AvoidPhrases,
			"recent_titles":     guard.RecentTitles,
			"writing_direction": guard.WritingDirection,
		},
		Images:         images,
		RenderTemplate: gen.RenderTemplate,
		AutoPublish:    gen.AutoPublish,
		SystemRole:     gen.SystemRole,
	}, nil
}
