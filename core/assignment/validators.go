package assignment

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kazi/core"
)

var (
	questionTypeTag  = "questiontype"
	questionTypeText = "invalid question type"

	mcOptionsTag  = "mcoptions"
	mcOptionsText = "multiple choice questions require at least 2 options"
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(questionTypeTag, questionTypeValidation)
	core.RegisterCustomTranslation(questionTypeTag, questionTypeText)

	core.Validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(mcOptionsTag, mcOptionsText)
}

// questionTypeValidation checks that the provided type is a known QuestionType
func questionTypeValidation(fl validator.FieldLevel) bool {
	val := QuestionType(fl.Field().String())
	for _, qt := range questionTypes {
		if val == qt {
			return true
		}
	}
	return false
}

// questionStructValidation: multiple choice questions carry their own options.
func questionStructValidation(sl validator.StructLevel) {
	if q, ok := sl.Current().Interface().(NewQuestion); ok {
		if q.Type == QuestionMultipleChoice && len(q.Options) < 2 {
			sl.ReportError(q.Options, "options", "Options", mcOptionsTag, "")
		}
	}
}
