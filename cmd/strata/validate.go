// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/config"
	"github.com/strata-ai/strata/pkg/manifest"
	"github.com/strata-ai/strata/pkg/stack"
)

type validateResult struct {
	Config    checkResult   `json:"config"`
	Manifest  checkResult   `json:"manifest"`
	Providers []checkResult `json:"providers"`
	Overall   string        `json:"overall"`
}

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "error", "skip"
	Message string `json:"message,omitempty"`
}

// runValidate checks config and manifest without constructing providers, so
// a manifest pointing at an unreachable backend still validates.
func runValidate(flags globalFlags) {
	result := validateResult{Providers: []checkResult{}}
	hasError := false

	if _, err := config.Load(flags.ConfigPath); err != nil {
		result.Config = checkResult{Name: "config", Status: "error", Message: err.Error()}
		hasError = true
	} else {
		result.Config = checkResult{Name: "config", Status: "ok"}
	}

	m, err := manifest.Load(flags.ManifestPath)
	if err != nil {
		result.Manifest = checkResult{Name: "manifest", Status: "error", Message: err.Error()}
		hasError = true
	} else {
		result.Manifest = checkResult{Name: "manifest", Status: "ok",
			Message: fmt.Sprintf("%d capability groups declared", len(m.APIs))}
	}

	if m != nil {
		catalog := stack.DefaultCatalog()
		for _, groupName := range m.APIs {
			group := api.CapabilityGroup(groupName)
			for _, b := range m.Providers[groupName] {
				name := fmt.Sprintf("%s/%s", groupName, b.ProviderID)
				if _, ok := catalog.Lookup(group, b.ProviderKind); !ok {
					result.Providers = append(result.Providers, checkResult{
						Name:    name,
						Status:  "error",
						Message: fmt.Sprintf("no adapter for kind %q", b.ProviderKind),
					})
					hasError = true
					continue
				}
				result.Providers = append(result.Providers, checkResult{
					Name:    name,
					Status:  "ok",
					Message: b.ProviderKind,
				})
			}
		}
	}

	if hasError {
		result.Overall = "error"
	} else {
		result.Overall = "ok"
	}

	if flags.JSON {
		printJSON(result)
	} else {
		printValidateResult(result)
	}
	if hasError {
		os.Exit(1)
	}
}

func printValidateResult(result validateResult) {
	icons := map[string]string{
		"ok":    "✓",
		"error": "✗",
		"skip":  "○",
	}

	fmt.Println("Strata Configuration Validation")
	fmt.Println("===============================")
	fmt.Println()

	printCheck(icons, result.Config)
	printCheck(icons, result.Manifest)
	for _, r := range result.Providers {
		printCheck(icons, r)
	}

	fmt.Println()
	switch result.Overall {
	case "ok":
		fmt.Println("✓ All checks passed")
	case "error":
		fmt.Println("✗ Validation failed")
	}
}

func printCheck(icons map[string]string, r checkResult) {
	icon := icons[r.Status]
	if r.Message != "" {
		fmt.Printf("%s %s: %s\n", icon, r.Name, r.Message)
	} else {
		fmt.Printf("%s %s\n", icon, r.Name)
	}
}
