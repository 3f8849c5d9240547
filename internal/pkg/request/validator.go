package request

import (
	"regexp"
	"time"

	"opsboard/internal/core"
	cErr "opsboard/internal/pkg/error"

	"github.com/go-playground/validator/v10"
)

type Validator interface {
	GetMessages() ValidatorMessages
}

type ValidatorMessages map[string]string

var reg = regexp.MustCompile(`\[\d\]`)

// GetError 從請求和錯誤中獲取錯誤信息
func GetError(request interface{}, err error) *cErr.Error {
	if validationErrors, isValidatorErrors := err.(validator.ValidationErrors); isValidatorErrors {
		messenger, isValidator := request.(Validator)

		var errorMessages []string
		for _, v := range validationErrors {
			if isValidator {
				field := reg.ReplaceAllString(v.Field(), ".*")
				if message, exist := messenger.GetMessages()[field+"."+v.Tag()]; exist {
					errorMessages = append(errorMessages, message)
					continue
				}
			}
			errorMessages = append(errorMessages, v.Error())
		}
		if len(errorMessages) > 0 {
			return cErr.ValidateErr(errorMessages[0])
		}
	}

	return cErr.ValidateErr("Parameter error")
}

// DateOnly 驗證 "YYYY-MM-DD"，空字串交給 required 規則處理
func DateOnly(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(core.DateLayout, value)
	return err == nil
}

// RegisterValidations 註冊自訂規則到 gin binding 的 validator
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("dateonly", DateOnly)
}
