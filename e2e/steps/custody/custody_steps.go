package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	ActAs(issuer, subject, role string)
	HoldCaseKey(key []byte)
	DropCaseKey()
	ResponseBody() []byte
}

// RegisterSteps registers custody lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &custodySteps{tc: tc}

	ctx.Step(`^I am "([^"]*)" from "([^"]*)" with role "([^"]*)"$`, steps.actAs)
	ctx.Step(`^I am "([^"]*)" from "([^"]*)" without a role$`, steps.actWithoutRole)
	ctx.Step(`^I hold the case key "([^"]*)"$`, steps.holdCaseKey)
	ctx.Step(`^I hold no case key$`, steps.holdNoCaseKey)

	ctx.Step(`^I register evidence "([^"]*)" for case "([^"]*)"$`, steps.registerEvidence)
	ctx.Step(`^I check out "([^"]*)"$`, steps.checkOut)
	ctx.Step(`^I transfer "([^"]*)" to "([^"]*)"$`, steps.transfer)
	ctx.Step(`^I check in "([^"]*)" at "([^"]*)"$`, steps.checkIn)
	ctx.Step(`^I remove "([^"]*)" because "([^"]*)"$`, steps.remove)
	ctx.Step(`^I look up "([^"]*)"$`, steps.lookUp)
	ctx.Step(`^I verify the case link of "([^"]*)"$`, steps.verifyCaseLink)
	ctx.Step(`^I request the history of "([^"]*)"$`, steps.history)
	ctx.Step(`^I list evidence with (status|custodian|caseFingerprint) "([^"]*)"$`, steps.list)

	ctx.Step(`^the history should have (\d+) entries ending with action "([^"]*)"$`, steps.historyShouldEndWith)
	ctx.Step(`^the list should contain "([^"]*)"$`, steps.listShouldContain)
	ctx.Step(`^the list should not contain "([^"]*)"$`, steps.listShouldNotContain)
	ctx.Step(`^the response should not mention "([^"]*)"$`, steps.responseShouldNotMention)
}

type custodySteps struct {
	tc TestContext
}

func (s *custodySteps) actAs(ctx context.Context, subject, issuer, role string) error {
	s.tc.ActAs(issuer, subject, role)
	return nil
}

func (s *custodySteps) actWithoutRole(ctx context.Context, subject, issuer string) error {
	s.tc.ActAs(issuer, subject, "")
	return nil
}

func (s *custodySteps) holdCaseKey(ctx context.Context, key string) error {
	s.tc.HoldCaseKey([]byte(key))
	return nil
}

func (s *custodySteps) holdNoCaseKey(ctx context.Context) error {
	s.tc.DropCaseKey()
	return nil
}

func (s *custodySteps) registerEvidence(ctx context.Context, evidenceID, caseID string) error {
	return s.tc.POST("/evidence", map[string]string{
		"evidenceId":  evidenceID,
		"caseId":      caseID,
		"description": "registered by e2e",
	})
}

func (s *custodySteps) checkOut(ctx context.Context, evidenceID string) error {
	return s.tc.POST(evidencePath(evidenceID, "checkout"), map[string]string{"notes": "e2e examination"})
}

func (s *custodySteps) transfer(ctx context.Context, evidenceID, custodian string) error {
	return s.tc.POST(evidencePath(evidenceID, "transfer"), map[string]string{"newCustodian": custodian})
}

func (s *custodySteps) checkIn(ctx context.Context, evidenceID, location string) error {
	return s.tc.POST(evidencePath(evidenceID, "checkin"), map[string]string{"location": location})
}

func (s *custodySteps) remove(ctx context.Context, evidenceID, reason string) error {
	return s.tc.POST(evidencePath(evidenceID, "remove"), map[string]string{"reason": reason})
}

func (s *custodySteps) lookUp(ctx context.Context, evidenceID string) error {
	return s.tc.GET(evidencePath(evidenceID, ""))
}

func (s *custodySteps) verifyCaseLink(ctx context.Context, evidenceID string) error {
	return s.tc.POST(evidencePath(evidenceID, "verify-case-link"), nil)
}

func (s *custodySteps) history(ctx context.Context, evidenceID string) error {
	return s.tc.GET(evidencePath(evidenceID, "history"))
}

func (s *custodySteps) list(ctx context.Context, filter, value string) error {
	return s.tc.GET("/evidence?" + url.Values{filter: {value}}.Encode())
}

func (s *custodySteps) historyShouldEndWith(ctx context.Context, n int, action string) error {
	var resp struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(s.tc.ResponseBody(), &resp); err != nil {
		return err
	}
	if len(resp.Entries) != n {
		return fmt.Errorf("expected %d history entries, got %d", n, len(resp.Entries))
	}
	if last := resp.Entries[n-1].Action; last != action {
		return fmt.Errorf("expected last action %q, got %q", action, last)
	}
	return nil
}

func (s *custodySteps) listed() ([]string, error) {
	var resp struct {
		EvidenceIDs []string `json:"evidenceIds"`
	}
	if err := json.Unmarshal(s.tc.ResponseBody(), &resp); err != nil {
		return nil, err
	}
	return resp.EvidenceIDs, nil
}

func (s *custodySteps) listShouldContain(ctx context.Context, evidenceID string) error {
	ids, err := s.listed()
	if err != nil {
		return err
	}
	if !slices.Contains(ids, evidenceID) {
		return fmt.Errorf("expected %q in %v", evidenceID, ids)
	}
	return nil
}

func (s *custodySteps) listShouldNotContain(ctx context.Context, evidenceID string) error {
	ids, err := s.listed()
	if err != nil {
		return err
	}
	if slices.Contains(ids, evidenceID) {
		return fmt.Errorf("did not expect %q in %v", evidenceID, ids)
	}
	return nil
}

func (s *custodySteps) responseShouldNotMention(ctx context.Context, text string) error {
	if bytes.Contains(s.tc.ResponseBody(), []byte(text)) {
		return fmt.Errorf("response mentions %q", text)
	}
	return nil
}

func evidencePath(evidenceID, action string) string {
	p := "/evidence/" + url.PathEscape(evidenceID)
	if action != "" {
		p += "/" + action
	}
	return p
}
