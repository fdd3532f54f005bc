//go:build integration

package steps

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

func registerHTTPSteps(ctx *godog.ScenarioContext, test *testContext) {
	ctx.Step(`^the API server is running$`, test.serverIsHealthy)

	ctx.Step(`^the header is empty$`, func() error {
		test.headers = map[string]string{}
		test.accessToken = ""
		return nil
	})
	ctx.Step(`^the header contains the key "([^"]*)" with "([^"]*)"$`, func(key, value string) error {
		test.headers[key] = value
		return nil
	})

	ctx.Step(`^I send a "([^"]*)" request to "([^"]*)"$`, func(method, path string) error {
		return test.send(method, path, "")
	})
	ctx.Step(`^I send a "([^"]*)" request to "([^"]*)" with body:$`, func(method, path string, body *godog.DocString) error {
		return test.send(method, path, body.Content)
	})

	ctx.Step(`^the response status should be (\d+)$`, test.expectStatus)
	ctx.Step(`^the response should be JSON$`, func() error {
		_, err := test.responseObject()
		return err
	})
	ctx.Step(`^the response should contain "([^"]*)"$`, test.expectTopLevelField)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, test.expectFieldValue)
	ctx.Step(`^the response field "([^"]*)" should exist$`, test.expectField)
	ctx.Step(`^the response field "([^"]*)" should have (\d+) items$`, test.expectFieldLength)

	ctx.Step(`^the db should contain (\d+) objects in the "([^"]*)" table$`, func(n int, table string) error {
		return test.expectRows(n, table, "")
	})
	ctx.Step(`^the db should contain (\d+) objects in "([^"]*)" with the values$`, func(n int, table string, values *godog.DocString) error {
		return test.expectRows(n, table, values.Content)
	})
}

func (t *testContext) serverIsHealthy() error {
	resp, err := t.client.Get(t.uri + "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// expand fills the {{...}} placeholders feature files use for ids and tokens.
func (t *testContext) expand(s string) string {
	versionID := ""
	if len(t.versionIDs) > 0 {
		versionID = t.versionIDs[0]
	}
	return strings.NewReplacer(
		"{{refresh_token}}", t.refreshToken,
		"{{access_token}}", t.accessToken,
		"{{reset_token}}", t.resetToken,
		"{{expired_reset_token}}", t.expiredToken,
		"{{plan_id}}", t.currentPlanID,
		"{{version_id}}", versionID,
	).Replace(s)
}

func (t *testContext) send(method, path, body string) error {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(t.expand(body)))
	}

	req, err := http.NewRequest(method, t.uri+t.expand(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.accessToken)
	}
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	t.response = &response{status: resp.StatusCode, body: string(raw)}
	var object map[string]any
	if json.Unmarshal(raw, &object) == nil {
		t.response.body = object
		if id, ok := lookup(object, "plan.id").(string); ok && id != "" {
			t.currentPlanID = id
		}
	}
	return nil
}

func (t *testContext) expectStatus(status int) error {
	if t.response == nil {
		return errors.New("no response received")
	}
	if t.response.status != status {
		return fmt.Errorf("expected status %d, got %d (body: %v)", status, t.response.status, t.response.body)
	}
	return nil
}

func (t *testContext) responseObject() (map[string]any, error) {
	if t.response == nil {
		return nil, errors.New("no response received")
	}
	object, ok := t.response.body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response is not a JSON object: %v", t.response.body)
	}
	return object, nil
}

func (t *testContext) expectTopLevelField(field string) error {
	object, err := t.responseObject()
	if err != nil {
		return err
	}
	if _, ok := object[field]; !ok {
		return fmt.Errorf("response has no field %q: %v", field, object)
	}
	return nil
}

func (t *testContext) field(path string) (any, error) {
	object, err := t.responseObject()
	if err != nil {
		return nil, err
	}
	value := lookup(object, path)
	if value == nil {
		return nil, fmt.Errorf("field %q not found in response: %v", path, object)
	}
	return value, nil
}

func (t *testContext) expectField(path string) error {
	_, err := t.field(path)
	return err
}

func (t *testContext) expectFieldValue(path, want string) error {
	value, err := t.field(path)
	if err != nil {
		return err
	}
	want = t.expand(want)
	if got := fmt.Sprint(value); got != want {
		return fmt.Errorf("field %q: expected %q, got %q", path, want, got)
	}
	return nil
}

func (t *testContext) expectFieldLength(path string, n int) error {
	value, err := t.field(path)
	if err != nil {
		return err
	}
	items, ok := value.([]any)
	if !ok {
		return fmt.Errorf("field %q is not a list: %v", path, value)
	}
	if len(items) != n {
		return fmt.Errorf("field %q: expected %d items, got %d", path, n, len(items))
	}
	return nil
}

// expectRows counts rows of a registered table, optionally filtered by the
// column values of a JSON object.
func (t *testContext) expectRows(n int, table, filter string) error {
	row, ok := t.db.GetModel(table)
	if !ok {
		return fmt.Errorf("table %q is not registered", table)
	}

	query := t.db.DbConn.Model(row)
	if filter != "" {
		var columns map[string]any
		if err := json.Unmarshal([]byte(t.expand(filter)), &columns); err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}
		for column, value := range columns {
			query = query.Where(fmt.Sprintf("%s = ?", column), value)
		}
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count != int64(n) {
		return fmt.Errorf("expected %d rows in %s matching %s, got %d", n, table, filter, count)
	}
	return nil
}

// lookup walks a dot path through decoded JSON. Numeric segments index lists.
func lookup(value any, path string) any {
	for _, key := range strings.Split(path, ".") {
		switch node := value.(type) {
		case map[string]any:
			value = node[key]
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			value = node[i]
		default:
			return nil
		}
	}
	return value
}
