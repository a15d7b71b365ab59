package config

import (
	"fmt"
	"strings"
)

// Override is a single --Section.Key value command line argument.
type Override struct {
	Section, Subsection, Key, Value string
}

func (o Override) String() string {
	if o.Subsection == "" {
		return fmt.Sprintf("--%s.%s %s", o.Section, o.Key, o.Value)
	}
	return fmt.Sprintf("--%s.%s.%s %s", o.Section, o.Subsection, o.Key,
		o.Value)
}

// ini renders o as a config file.
func (o Override) ini() string {
	val := strings.ReplaceAll(o.Value, `"`, `\"`)
	if o.Subsection == "" {
		return fmt.Sprintf("[%s]\n%s = \"%s\"\n", o.Section, o.Key, val)
	}
	return fmt.Sprintf("[%s \"%s\"]\n%s = \"%s\"\n",
		o.Section, o.Subsection, o.Key, val)
}

// ParseCommandLine parses the command line arguments (without the program
// name) and returns the mode amrpar is being run in, the name of the config
// file, and any arguments which were overwritten. Expects that the arguments
// are presented in the order:
// $ amrpar <mode> <config file> [--<Section.Key1> <Value1>] ...
//
// The help mode doesn't need a config file.
func ParseCommandLine(args []string) (
	mode, configFile string, overrides []Override, err error,
) {
	if len(args) == 0 {
		return "", "", nil, fmt.Errorf("No mode was given.")
	}
	mode = args[0]
	if mode == "help" {
		return mode, "", nil, nil
	} else if len(args) < 2 {
		return "", "", nil, fmt.Errorf("The %s mode needs a config file.",
			mode)
	}
	configFile = args[1]

	rest := args[2:]
	for i := 0; i < len(rest); i += 2 {
		if !strings.HasPrefix(rest[i], "--") {
			return "", "", nil, fmt.Errorf("Expected a --Section.Key "+
				"argument, but got '%s'.", rest[i])
		} else if i+1 >= len(rest) {
			return "", "", nil, fmt.Errorf("The argument %s has no value.",
				rest[i])
		}

		tok := strings.Split(rest[i][2:], ".")
		o := Override{Value: rest[i+1]}
		switch len(tok) {
		case 2:
			o.Section, o.Key = tok[0], tok[1]
		case 3:
			o.Section, o.Subsection, o.Key = tok[0], tok[1], tok[2]
		default:
			return "", "", nil, fmt.Errorf("The argument '%s' should look "+
				"like --Section.Key or --Section.Name.Key.", rest[i])
		}
		for _, t := range tok {
			if t == "" {
				return "", "", nil, fmt.Errorf("The argument '%s' has an "+
					"empty name.", rest[i])
			}
		}
		overrides = append(overrides, o)
	}

	return mode, configFile, overrides, nil
}
