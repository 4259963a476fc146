package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Константы валидации
const (
	MaxCommentLength      = 2000
	MaxDeliveryLinkLength = 500
	MinRating             = 1
	MaxRating             = 5
	MaxAmountScale        = 2
)

// MaxAmount - верхняя граница суммы предложения.
var MaxAmount = decimal.NewFromInt(100_000_000)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateAmount проверяет сумму предложения.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("сумма должна быть положительной")
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("сумма не должна превышать %s", MaxAmount)
	}
	if -amount.Exponent() > MaxAmountScale && !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("сумма может содержать не более %d знаков после запятой", MaxAmountScale)
	}
	return nil
}

// ValidateComment проверяет комментарий к торгу или отзыву.
func ValidateComment(comment string) error {
	return ValidateLength("комментарий", comment, 0, MaxCommentLength)
}

// ValidateRating проверяет оценку отзыва.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("оценка должна быть от %d до %d", MinRating, MaxRating)
	}
	return nil
}

// ValidateDeliveryLink проверяет ссылку на результат работы.
func ValidateDeliveryLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return fmt.Errorf("ссылка на результат обязательна")
	}
	if err := ValidateLength("ссылка", link, 0, MaxDeliveryLinkLength); err != nil {
		return err
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("некорректная ссылка: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("ссылка должна начинаться с http:// или https://")
	}
	if parsed.Host == "" {
		return fmt.Errorf("в ссылке не указан домен")
	}
	return nil
}

// SanitizeString удаляет управляющие символы и обрезает пробелы.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
