//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

const scanPollTimeout = 5 * time.Second

func registerPlanSteps(ctx *godog.ScenarioContext, test *testContext) {
	// Plan setup steps
	ctx.Step(`^I have a plan titled "([^"]*)"$`, test.iHaveAPlanTitled)
	ctx.Step(`^I remember the plan versions$`, test.iRememberThePlanVersions)

	// AI collaborator steps
	ctx.Step(`^the AI service fails with "([^"]*)"$`, test.theAIServiceFailsWith)
	ctx.Step(`^I wait for the market scan to finish$`, test.iWaitForTheMarketScanToFinish)
	ctx.Step(`^the AI service should have received (\d+) market scans?$`, test.theAIServiceShouldHaveReceivedMarketScans)
	ctx.Step(`^the AI service should have analyzed "([^"]*)" (\d+) times?$`, test.theAIServiceShouldHaveAnalyzed)

	// Email steps
	ctx.Step(`^the email queue is processed$`, test.theEmailQueueIsProcessed)
	ctx.Step(`^the email provider should have received an email to "([^"]*)"$`, test.theEmailProviderShouldHaveReceivedAnEmailTo)
	ctx.Step(`^the email provider should not have received any email$`, test.theEmailProviderShouldNotHaveReceivedAnyEmail)
}

func (t *testContext) iHaveAPlanTitled(title string) error {
	payload := fmt.Sprintf(`{"title": %q}`, title)
	if err := t.send(http.MethodPost, "/api/v1/plans", payload); err != nil {
		return err
	}
	if err := t.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	if t.currentPlanID == "" {
		return errors.New("plan id missing from create response")
	}
	return nil
}

func (t *testContext) iRememberThePlanVersions() error {
	if err := t.send(http.MethodGet, "/api/v1/plans/"+t.currentPlanID+"/versions", ""); err != nil {
		return err
	}
	if err := t.expectStatus(http.StatusOK); err != nil {
		return err
	}

	body, err := t.responseObject()
	if err != nil {
		return err
	}
	versions, _ := body["versions"].([]any)
	t.versionIDs = t.versionIDs[:0]
	for _, v := range versions {
		if id, ok := lookup(v, "id").(string); ok {
			t.versionIDs = append(t.versionIDs, id)
		}
	}
	if len(t.versionIDs) == 0 {
		return errors.New("plan has no versions")
	}
	return nil
}

func (t *testContext) theAIServiceFailsWith(message string) error {
	t.ai.FailWith(errors.New(message))
	return nil
}

// iWaitForTheMarketScanToFinish polls the scan status until it leaves the
// running state. The last status response is kept for assertions.
func (t *testContext) iWaitForTheMarketScanToFinish() error {
	deadline := time.Now().Add(scanPollTimeout)
	for time.Now().Before(deadline) {
		path := "/api/v1/plans/" + t.currentPlanID + "/competitors/scan/status"
		if err := t.send(http.MethodGet, path, ""); err != nil {
			return err
		}
		if err := t.expectStatus(http.StatusOK); err != nil {
			return err
		}
		body, err := t.responseObject()
		if err != nil {
			return err
		}
		if state, _ := body["state"].(string); state != "running" {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("market scan still running after %s", scanPollTimeout)
}

func (t *testContext) theAIServiceShouldHaveReceivedMarketScans(count int) error {
	if got := t.ai.Scans(); got != count {
		return fmt.Errorf("expected %d market scans, got %d", count, got)
	}
	return nil
}

func (t *testContext) theAIServiceShouldHaveAnalyzed(name string, count int) error {
	if got := t.ai.DeepDives(name); got != count {
		return fmt.Errorf("expected %d deep dives of %q, got %d", count, name, got)
	}
	return nil
}

func (t *testContext) theEmailQueueIsProcessed() error {
	if shared.injector == nil || shared.injector.EmailWorker == nil {
		return errors.New("email worker is not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shared.injector.EmailWorker.ProcessNow(ctx)
	return nil
}

func (t *testContext) theEmailProviderShouldHaveReceivedAnEmailTo(recipient string) error {
	request := t.emailAPI.GetRequestBody(http.MethodPost, "/emails", 0)
	if request == nil {
		return errors.New("email provider received no request")
	}

	to, _ := request["to"].([]any)
	for _, addr := range to {
		if s, ok := addr.(string); ok && strings.Contains(s, recipient) {
			return nil
		}
	}
	return fmt.Errorf("email was not sent to %s: %v", recipient, request["to"])
}

func (t *testContext) theEmailProviderShouldNotHaveReceivedAnyEmail() error {
	if request := t.emailAPI.GetRequestBody(http.MethodPost, "/emails", 0); request != nil {
		return fmt.Errorf("unexpected email sent: %v", request)
	}
	return nil
}
