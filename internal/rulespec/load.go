package rulespec

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/datatool/internal/queryir"
)

// LoadFile compiles the rules at path.
//
// path may be a single .cue file or a directory holding one CUE package,
// in which case every file of the package is unified first.
func LoadFile(path string) (queryir.Rules, error) {
	info, err := os.Stat(path)
	if err != nil {
		return queryir.Rules{}, fmt.Errorf("rules file: %w", err)
	}

	ctx := cuecontext.New()

	var v cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return queryir.Rules{}, fmt.Errorf("rules directory %s: no CUE instances loaded", path)
		}
		inst := instances[0]
		if inst.Err != nil {
			return queryir.Rules{}, fmt.Errorf("loading CUE files: %w", inst.Err)
		}
		v = ctx.BuildInstance(inst)
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return queryir.Rules{}, fmt.Errorf("rules file: %w", err)
		}
		v = ctx.CompileBytes(data, cue.Filename(path))
	}

	return CompileRules(v)
}
