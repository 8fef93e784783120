package daubot

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var errNoEditor = errors.New("no editor found, set $VISUAL or $EDITOR")

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// editorCommand returns the editor argv for path. $VISUAL and $EDITOR may
// carry flags, e.g. "code --wait".
func editorCommand(path string) ([]string, error) {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v, ok := lookupEnv(env); ok {
			if fields := strings.Fields(v); len(fields) > 0 {
				return append(fields, path), nil
			}
		}
	}

	candidates := []string{"nano", "vim", "vi", "emacs"}
	if runtime.GOOS == "windows" {
		candidates = []string{"notepad"}
	}
	for _, e := range candidates {
		if _, err := lookPath(e); err == nil {
			return []string{e, path}, nil
		}
	}
	return nil, errNoEditor
}

func openInEditor(path string) error {
	argv, err := editorCommand(path)
	if err != nil {
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
