package toolserver

import (
	"errors"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/workflow"
)

// toToolError classifies any error a tool handler returns into the closed
// ErrorCode set, mirroring the teacher's single translation-function
// convention (wrapDBError at the repository boundary, this one at the
// domain-to-envelope boundary).
func toToolError(err error) *ToolError {
	if err == nil {
		return nil
	}

	var vf *workflow.ValidationFailure
	if errors.As(err, &vf) {
		if len(vf.UnsatisfiedBlockers) > 0 {
			return &ToolError{Code: CodeDependency, Message: err.Error(), Blockers: vf.UnsatisfiedBlockers}
		}
		return &ToolError{Code: CodeValidation, Message: err.Error(), Blockers: vf.MissingRequiredNotes}
	}

	var de *storage.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case storage.KindNotFound:
			return &ToolError{Code: CodeNotFound, Message: de.Error()}
		case storage.KindValidation:
			return &ToolError{Code: CodeValidation, Message: de.Error()}
		case storage.KindConflict:
			return &ToolError{Code: CodeConflict, Message: de.Error()}
		case storage.KindDatabase:
			return &ToolError{Code: CodeDatabase, Message: de.Error()}
		default:
			return &ToolError{Code: CodeInternal, Message: de.Error()}
		}
	}

	return &ToolError{Code: CodeInternal, Message: err.Error()}
}
