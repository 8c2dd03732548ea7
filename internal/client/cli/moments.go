package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dmitrijs2005/logmoments/internal/client/services"
)

// readFile is a test seam for loading photo attachments.
var readFile = os.ReadFile

// Capture prompts for a moment and stores it.
func (a *App) Capture(ctx context.Context) error {
	content, err := getMultiline(a.reader, "What happened?", a.out)
	if err != nil {
		return err
	}
	feeling, err := getSimpleText(a.reader, "How did it feel? (empty to detect)", a.out)
	if err != nil {
		return err
	}
	when, err := getSimpleText(a.reader, "When? (empty for now, e.g. \"yesterday at 9pm\")", a.out)
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Photo file (optional)", a.out)
	if err != nil {
		return err
	}

	in := services.CaptureInput{Content: content, Feeling: feeling, When: when}
	if path != "" {
		if in.Photo, err = readFile(path); err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
	}

	res, err := a.moments.Capture(ctx, in)
	if err != nil {
		return err
	}
	printlnFn(renderCaptured(res))
	return nil
}

func (a *App) List(ctx context.Context) error {
	list, err := a.moments.Timeline(ctx)
	if err != nil {
		return err
	}
	printlnFn(renderTimeline(list, a.now()))
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := momentID(args)
	if err != nil {
		return err
	}
	m, err := a.moments.Get(ctx, id)
	if err != nil {
		return err
	}
	printlnFn(renderMoment(m, a.now()))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := momentID(args)
	if err != nil {
		return err
	}
	if err := a.moments.Delete(ctx, id); err != nil {
		return err
	}
	printlnFn(styleOK.Render(fmt.Sprintf("Moment %d deleted", id)))
	return nil
}

func (a *App) Insights(ctx context.Context) error {
	in, err := a.moments.Insights(ctx)
	if err != nil {
		return err
	}
	printlnFn(renderInsights(in))
	return nil
}

func momentID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: <command> <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid moment id %q", args[0])
	}
	return id, nil
}
