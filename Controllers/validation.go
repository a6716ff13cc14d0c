package Controllers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"

	"Meridian/BusinessTime"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ = uni.GetTranslator("en")

	validate = validator.New()
	// Report fields by their json name so messages match the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}

	if err := validate.RegisterValidation("bizdate", func(fl validator.FieldLevel) bool {
		return BusinessTime.ValidDate(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := validate.RegisterTranslation("bizdate", trans, func(t ut.Translator) error {
		return t.Add("bizdate", "{0} must be a date in YYYY-MM-DD form", true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		msg, _ := t.T("bizdate", fe.Field())
		return msg
	}); err != nil {
		panic(err)
	}
}

// bind parses the request body into out and validates it. It returns the
// body of a 400 response, or nil when out is good to use.
func bind(ctx *fiber.Ctx, out interface{}) fiber.Map {
	if err := ctx.BodyParser(out); err != nil {
		return fiber.Map{"error": "Invalid request body", "message": err.Error()}
	}
	return check(out)
}

func check(out interface{}) fiber.Map {
	err := validate.Struct(out)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fiber.Map{"error": "Validation failed", "message": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(trans)
	}
	return fiber.Map{"error": "Validation failed", "fields": fields}
}

// idParam reads a positive numeric route parameter.
func idParam(ctx *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
