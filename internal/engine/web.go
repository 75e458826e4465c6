package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
)

// fillableInputs matches every input a fill_form step should touch.
const fillableInputs = "input:not([type='submit']):not([type='button']):not([type='hidden'])"

// successIndicators is the ordered list of probes check_success runs:
// marker elements first, then visible text. The text probes are XPath
// with a lowercase translate so matching is case-insensitive.
var successIndicators = []string{
	".success",
	".alert-success",
	"[data-testid='success']",
	textProbe("success"),
	textProbe("thank you"),
	textProbe("submitted"),
}

func textProbe(text string) string {
	return fmt.Sprintf(
		"//*[contains(translate(text(), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), '%s')]",
		text)
}

// execWeb interprets one web-domain step against the browser provider.
func (r *Runner) execWeb(ctx context.Context, step plan.Step) (any, error) {
	switch step.Action {
	case plan.ActionNavigate:
		// A navigate step only issues the load; later checks decide
		// whether the page is any good.
		if err := r.browser.Navigate(ctx, step.URL); err != nil {
			return nil, &ProviderError{Op: "navigate", Err: err}
		}
		return nil, nil

	case plan.ActionFindElement:
		if err := r.browser.WaitForSelector(ctx, step.Selector, r.policies.ElementWait); err != nil {
			return nil, &ElementNotFoundError{Selector: step.Selector}
		}
		return nil, nil

	case plan.ActionFill:
		if err := r.browser.Fill(ctx, step.Selector, step.Value); err != nil {
			return nil, &ProviderError{Op: "fill", Err: err}
		}
		return nil, nil

	case plan.ActionClick:
		if err := r.browser.Click(ctx, step.Selector); err != nil {
			return nil, &ProviderError{Op: "click", Err: err}
		}
		return nil, nil

	case plan.ActionWait:
		select {
		case <-time.After(time.Duration(step.TimeMS) * time.Millisecond):
		case <-ctx.Done():
		}
		return nil, nil

	case plan.ActionCheckURLChange:
		current, err := r.browser.CurrentURL(ctx)
		if err != nil {
			return nil, &ProviderError{Op: "get_url", Err: err}
		}
		if current == step.OriginalURL {
			return nil, assertionf("URL did not change after action")
		}
		return map[string]any{"url": current}, nil

	case plan.ActionCheckTitle:
		title, err := r.browser.Title(ctx)
		if err != nil {
			return nil, &ProviderError{Op: "get_title", Err: err}
		}
		if title == "" {
			return nil, assertionf("page title is empty")
		}
		return map[string]any{"title": title}, nil

	case plan.ActionCheckContent:
		return r.checkContent(ctx)

	case plan.ActionFillForm:
		return r.fillForm(ctx)

	case plan.ActionCheckSuccess:
		return r.checkSuccess(ctx), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, step.Action)
	}
}

func (r *Runner) checkContent(ctx context.Context) (any, error) {
	content, err := r.browser.Content(ctx)
	if err != nil {
		return nil, &ProviderError{Op: "get_content", Err: err}
	}
	if len(content) < r.policies.ContentMinimum {
		return nil, assertionf("page has minimal content (%d characters)", len(content))
	}

	details := map[string]any{"length": len(content)}
	// Attach a readable digest so the result is reviewable on its own.
	// Extraction failures are ignored: the check itself already passed.
	if url, err := r.browser.CurrentURL(ctx); err == nil {
		if digest, err := provider.DigestPage(content, url); err == nil {
			details["digest"] = digest
		}
	}
	return details, nil
}

// fillForm enumerates the page's fillable inputs and fills each one by
// its inferred type. Individual inputs that refuse a value are skipped;
// only the enumeration itself can fail the step.
func (r *Runner) fillForm(ctx context.Context) (any, error) {
	inputs, err := r.browser.FormInputs(ctx, fillableInputs)
	if err != nil {
		return nil, &ProviderError{Op: "query_all", Err: err}
	}

	filled := 0
	for _, in := range inputs {
		var err error
		switch in.Type {
		case "text", "email", "":
			err = r.browser.FillInput(ctx, in, r.policies.FormEmail)
		case "password":
			err = r.browser.FillInput(ctx, in, r.policies.FormPassword)
		case "checkbox":
			err = r.browser.CheckInput(ctx, in)
		default:
			continue
		}
		if err == nil {
			filled++
		}
	}
	return map[string]any{"inputs": len(inputs), "filled": filled}, nil
}

// checkSuccess probes the known success indicators with a short timeout
// each. It is a soft check: when nothing matches it reports that and
// falls through without failing, since many sites signal success with a
// redirect instead of a marker element.
func (r *Runner) checkSuccess(ctx context.Context) any {
	for _, selector := range successIndicators {
		if err := r.browser.WaitForSelector(ctx, selector, r.policies.SuccessProbe); err == nil {
			return map[string]any{"indicator": selector, "found": true}
		}
	}
	// Give any pending redirect a moment before moving on.
	select {
	case <-time.After(r.policies.SuccessProbe):
	case <-ctx.Done():
	}
	return map[string]any{"found": false}
}
