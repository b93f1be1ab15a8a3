package e2e

import (
	"github.com/cucumber/godog"

	"chainguard/e2e/steps/common"
	"chainguard/e2e/steps/custody"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	custody.RegisterSteps(ctx, tc)
}
