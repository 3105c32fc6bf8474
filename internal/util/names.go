package util

import (
	"strings"
	"unicode"
)

// FirstNonEmpty возвращает первое непустое (после TrimSpace) значение
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// DisplayName склеивает имя и фамилию, подставляя дефолты для пустых частей
func DisplayName(first, last, defFirst, defLast string) string {
	first = FirstNonEmpty(first, defFirst)
	last = FirstNonEmpty(last, defLast)
	return strings.TrimSpace(first + " " + last)
}

// Initials делает подсказку вида "I.I." из имени: не больше двух букв
func Initials(name string) string {
	var b strings.Builder
	n := 0
	for _, part := range strings.Fields(name) {
		for _, r := range part {
			if unicode.IsLetter(r) {
				b.WriteRune(unicode.ToUpper(r))
				b.WriteByte('.')
				n++
				break
			}
		}
		if n == 2 {
			break
		}
	}
	return b.String()
}

// ShortID берёт первые n символов идентификатора без дефисов, в верхнем регистре
func ShortID(id string, n int) string {
	id = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
	if len(id) > n {
		return id[:n]
	}
	return id
}
