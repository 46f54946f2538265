package back

import (
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

type (
	// Target describes the register file and calling convention the
	// emitter works against. The defaults match MIPS32/SPIM; a yaml
	// file can override any field.
	Target struct {
		Name string `yaml:"name"`

		// Temps hold expression temporaries, Saved hold user
		// variables. Both are spilled around calls and block
		// boundaries, so the split is about allocation pressure, not
		// preservation.
		Temps []string `yaml:"temp_regs"`
		Saved []string `yaml:"saved_regs"`

		// Scratch are never allocated; the emitter uses them for
		// immediates and address arithmetic. Two are required.
		Scratch []string `yaml:"scratch_regs"`

		// Args carry the first calls' arguments; the rest go on the
		// stack.
		Args []string `yaml:"arg_regs"`

		Ret string `yaml:"ret_reg"`

		Align int `yaml:"frame_align"`
	}
)

func MIPS32() *Target {
	return &Target{
		Name:    "mips32",
		Temps:   []string{"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7"},
		Saved:   []string{"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7"},
		Scratch: []string{"$t8", "$t9"},
		Args:    []string{"$a0", "$a1", "$a2", "$a3"},
		Ret:     "$v0",
		Align:   8,
	}
}

// LoadTarget reads a yaml target description, with MIPS32 defaults for
// anything the file leaves out.
func LoadTarget(name string) (_ *Target, err error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read target")
	}

	t := MIPS32()

	err = yaml.Unmarshal(data, t)
	if err != nil {
		return nil, errors.Wrap(err, "parse target")
	}

	err = t.validate()
	if err != nil {
		return nil, errors.Wrap(err, "target %v", t.Name)
	}

	return t, nil
}

func (t *Target) validate() error {
	if len(t.Temps) == 0 || len(t.Saved) == 0 {
		return errors.New("empty register pool")
	}
	if len(t.Scratch) < 2 {
		return errors.New("two scratch registers required")
	}
	if t.Ret == "" {
		return errors.New("no return register")
	}
	if t.Align <= 0 || t.Align&(t.Align-1) != 0 {
		return errors.New("frame alignment must be a power of two: %v", t.Align)
	}

	return nil
}
