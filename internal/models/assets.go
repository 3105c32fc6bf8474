package models

import "sort"

// AssetSet — имя файла → байты PNG
type AssetSet map[string][]byte

// Names возвращает имена файлов в детерминированном порядке
func (a AssetSet) Names() []string {
	out := make([]string, 0, len(a))
	for name := range a {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
