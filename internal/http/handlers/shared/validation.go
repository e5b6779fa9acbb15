package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators 向 gin 绑定引擎注册 sa_id、phone 校验标签，重复调用返回首次结果
func RegisterValidators() error {
	registerOnce.Do(func() {
		registerErr = registerValidators()
	})
	return registerErr
}

func registerValidators() error {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	engine.RegisterTagNameFunc(requestFieldName)
	if err := engine.RegisterValidation("sa_id", validateSAID); err != nil {
		return err
	}
	return engine.RegisterValidation("phone", validatePhone)
}

// requestFieldName 错误信息使用请求中的字段名：json 标签优先，其次 form 标签
func requestFieldName(field reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(field.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}

func validateSAID(fl validator.FieldLevel) bool {
	return service.ValidSAIDNumber(strings.TrimSpace(fl.Field().String()))
}

func validatePhone(fl validator.FieldLevel) bool {
	_, err := service.NormalizePhone(fl.Field().String())
	return err == nil
}

// describeBindError 只报告第一个失败的字段
func describeBindError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request body"
	}
	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", field)
	case "email":
		return fmt.Sprintf("%s: must be a valid email address", field)
	case "sa_id":
		return fmt.Sprintf("%s: must be a valid South African ID number", field)
	case "phone":
		return fmt.Sprintf("%s: must be a valid phone number", field)
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s: is invalid", field)
	}
}
