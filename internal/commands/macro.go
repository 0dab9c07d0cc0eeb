// Package commands renders remage macros and assembles the command lines
// that the execution layer hands to the shell.
package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tdixon97/legend-simflow/internal/config"
	"github.com/tdixon97/legend-simflow/internal/metad"
	"github.com/tdixon97/legend-simflow/internal/patterns"
	"github.com/tdixon97/legend-simflow/internal/simconfig"
)

// Macro directives synthesized for volume confinement.
const (
	confineVolumeDirective   = "/RMG/Generator/Confine Volume"
	addVolumeDirective       = "/RMG/Generator/Confinement/Physical/AddVolume"
	sampleOnSurfaceDirective = "/RMG/Generator/Confinement/SampleOnSurface true"
)

// deferredTokens are placeholders that legitimately survive macro
// rendering: they are substituted per job at invocation time, either by
// remage itself (--macro-substitutions) or by the macro-free inliner.
var deferredTokens = map[string]bool{
	"N_EVENTS": true,
	"SEED":     true,
}

// MakeRemageMacro renders the macro for a (simid, tier) and writes it to
// the canonical input path, creating parent directories as needed. It
// returns the rendered text and the path it was written to.
func MakeRemageMacro(cfg *config.Config, store *metad.Store, simid, tier string) (string, string, error) {
	block := simconfig.BlockPath(cfg.Experiment, tier, simid)

	simCfg, err := simconfig.Block(cfg, store, tier, simid)
	if err != nil {
		return "", "", err
	}

	// External vertices require a VERTICES_FILE substitution that the
	// macro pipeline cannot provide yet.
	if simCfg.Vertices != "" {
		return "", "", &simconfig.NotImplementedError{Feature: "vertices-based macro rendering"}
	}

	macSubs := make(map[string]string)

	if simCfg.Generator != nil {
		defs, err := simconfig.Generators(cfg, store, tier)
		if err != nil {
			return "", "", err
		}
		v, ok := defs.Get(simCfg.Generator.Key)
		if !ok {
			return "", "", simconfig.Errorf(block,
				"generator definition %q not found", simCfg.Generator.Key)
		}
		macSubs["GENERATOR"], err = joinDirectives(v)
		if err != nil {
			return "", "", simconfig.NewConfigError(block+".generator", err)
		}
	}

	if simCfg.Confinement != nil {
		text, err := renderConfinement(cfg, store, tier, block, simCfg.Confinement)
		if err != nil {
			return "", "", err
		}
		macSubs["CONFINEMENT"] = text
	}

	// User overrides apply last and may shadow the built-ins.
	for k, v := range simCfg.MacroSubstitutions {
		macSubs[k] = v
	}

	if simCfg.Template == "" {
		return "", "", simconfig.Errorf(block, "missing required field %q", "template")
	}
	templatePath := simCfg.Template
	if !filepath.IsAbs(templatePath) {
		templatePath = filepath.Join(cfg.Paths.Config, templatePath)
	}
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return "", "", simconfig.NewConfigError(block+".template", err)
	}

	text, err := substVars(strings.TrimSpace(string(raw)), macSubs)
	if err != nil {
		return "", "", simconfig.NewConfigError(block, err)
	}

	ofile := patterns.InputSimjobFilename(cfg, tier, simid)
	if err := os.MkdirAll(filepath.Dir(ofile), 0o755); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(ofile, []byte(text), 0o644); err != nil {
		return "", "", err
	}

	return text, ofile, nil
}

// renderConfinement turns the parsed confinement references into macro
// directives. A single ~defines: reference resolves through the
// confinement dictionary; volume references synthesize the select/add
// directives, with surface sampling enabled if any entry asks for it.
func renderConfinement(cfg *config.Config, store *metad.Store, tier, block string, refs []simconfig.Reference) (string, error) {
	if len(refs) == 1 && refs[0].Kind == simconfig.RefDefine {
		defs, err := simconfig.ConfinementDefs(cfg, store, tier)
		if err != nil {
			return "", err
		}
		v, ok := defs.Get(refs[0].Key)
		if !ok {
			return "", simconfig.Errorf(block,
				"confinement definition %q not found", refs[0].Key)
		}
		text, err := joinDirectives(v)
		if err != nil {
			return "", simconfig.NewConfigError(block+".confinement", err)
		}
		return text, nil
	}

	lines := []string{confineVolumeDirective}
	surface := false
	for _, ref := range refs {
		// A ~defines: entry inside a list was already rejected at decode.
		lines = append(lines, addVolumeDirective+" "+ref.Key)
		if ref.Kind == simconfig.RefSurfaceVolume {
			surface = true
		}
	}
	if surface {
		lines = append(lines, sampleOnSurfaceDirective)
	}
	return strings.Join(lines, "\n"), nil
}

// joinDirectives accepts a definition value that is either a single
// directive string or a list of directive strings.
func joinDirectives(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []any:
		lines := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return "", fmt.Errorf("definition entries must be strings, got %T", e)
			}
			lines = append(lines, s)
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", fmt.Errorf("definition must be a string or a list of strings, got %T", v)
	}
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// substVars replaces {NAME} placeholders in text. Every placeholder must
// either have a substitution or be a deferred per-job token; anything else
// unresolved is fatal rather than silently left behind.
func substVars(text string, subs map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(text, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := subs[name]; ok {
			return v
		}
		if deferredTokens[name] {
			return tok
		}
		missing = append(missing, name)
		return tok
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved macro placeholders: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
