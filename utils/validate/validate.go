package validate

import (
	"fmt"
	"reflect"
	"strings"

	"opsboard/internal/core"
	cErr "opsboard/internal/pkg/error"
	"opsboard/internal/pkg/request"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// 輸出格式化的 validator error（欄位 json 名/型別/規則列表）
func ValidationErrorResponse(obj interface{}, err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok {
		var b strings.Builder
		b.WriteString("Validation error:\n")
		for _, fe := range errs {
			field := jsonFieldName(obj, fe.StructField())
			ftype := fieldType(obj, fe.StructField())
			format := getFieldFormat(obj, fe.StructField())
			b.WriteString(fmt.Sprintf(" - Field \"%s\" (type: %s) failed the '%s' validation (rules: %v)\n",
				field, ftype, fe.Tag(), format))
		}
		return b.String()
	}
	return fmt.Sprintf("Validation error: %s", err.Error())
}

func structType(obj interface{}) reflect.Type {
	t := reflect.TypeOf(obj)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func jsonFieldName(obj interface{}, structField string) string {
	if f, ok := structType(obj).FieldByName(structField); ok {
		for _, key := range []string{"json", "form"} {
			tag := f.Tag.Get(key)
			if tag != "" && tag != "-" {
				return strings.Split(tag, ",")[0]
			}
		}
	}
	return structField
}

func fieldType(obj interface{}, structField string) string {
	if f, ok := structType(obj).FieldByName(structField); ok {
		return f.Type.Name()
	}
	return ""
}

func getFieldFormat(obj interface{}, structField string) []string {
	if f, ok := structType(obj).FieldByName(structField); ok {
		tag := f.Tag.Get("binding")
		if tag != "" {
			return strings.Split(tag, ",")
		}
	}
	return nil
}

// BindAndValidate 綁定 JSON body；DTO 有自訂訊息時優先使用
func BindAndValidate(c *gin.Context, req any) (cause error, responseErr error) {
	if err := c.ShouldBindJSON(req); err != nil {
		if _, ok := req.(request.Validator); ok {
			if _, isValidation := err.(validator.ValidationErrors); isValidation {
				return err, request.GetError(req, err)
			}
		}
		return err, cErr.ValidateErr(ValidationErrorResponse(req, err))
	}
	return nil, nil
}

func BindQuery(c *gin.Context, req any) (cause error, responseErr error) {
	if err := c.ShouldBindQuery(req); err != nil {
		return err, cErr.ValidatePathParamsErr(ValidationErrorResponse(req, err))
	}
	return nil, nil
}

var validSources = []core.Source{
	core.SourceBork,
	core.SourceEitje,
}

// IsValidSource 只有具備原始資料集合的來源
func IsValidSource(source string) bool {
	for _, v := range validSources {
		if core.Source(source) == v {
			return true
		}
	}
	return false
}

var validKinds = []core.AggregationKind{
	core.KindSalesLineItems,
	core.KindLaborHours,
	core.KindWorkerProfiles,
}

func IsValidKind(kind string) bool {
	for _, v := range validKinds {
		if core.AggregationKind(kind) == v {
			return true
		}
	}
	return false
}
