package chapter

import (
	"regexp"
	"strconv"
	"strings"
)

// chineseNumMap 中文数字到阿拉伯数字的映射
var chineseNumMap = map[string]int{
	"零": 0, "一": 1, "二": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
	"十一": 11, "十二": 12, "十三": 13, "十四": 14, "十五": 15,
	"十六": 16, "十七": 17, "十八": 18, "十九": 19, "二十": 20,
	"二十一": 21, "二十二": 22, "二十三": 23, "二十四": 24, "二十五": 25,
	"二十六": 26, "二十七": 27, "二十八": 28, "二十九": 29, "三十": 30,
	"百": 100, "千": 1000, "万": 10000,
}

var (
	englishWordRe = regexp.MustCompile(`\b[A-Za-z]{4,}\b`)
	leadingNumRe  = regexp.MustCompile(`^(\d+(?:\.\d+)*)`)
	dottedNumRe   = regexp.MustCompile(`^\d+(?:\.\d+)*$`)
	pureChineseRe = regexp.MustCompile(`^[一二三四五六七八九十百千万]+$`)
	allDigitsRe   = regexp.MustCompile(`^\d+$`)

	chapterHeadRe = regexp.MustCompile(`^第([一二三四五六七八九十\d]+)章`)
	sectionHeadRe = regexp.MustCompile(`^第([一二三四五六七八九十\d]+)节`)

	// normalizePatterns 标准化时按顺序尝试的中文章节格式。
	// 章节组合格式优先，保证 Normalize(Extract(x)) == Extract(x)。
	normalizePatterns = []*regexp.Regexp{
		regexp.MustCompile(`第[一二三四五六七八九十\d]+章第[一二三四五六七八九十\d]+节`),
		regexp.MustCompile(`第[一二三四五六七八九十\d]+章[^第]*`),
		regexp.MustCompile(`第[一二三四五六七八九十\d]+节`),
	}

	// extractPatterns 提取章节信息时按优先级尝试的中文格式
	extractPatterns = []*regexp.Regexp{
		regexp.MustCompile(`第[一二三四五六七八九十\d]+章第[一二三四五六七八九十\d]+节`),
		regexp.MustCompile(`第[一二三四五六七八九十\d]+章[^第]*`),
		regexp.MustCompile(`第[一二三四五六七八九十\d]+节`),
		regexp.MustCompile(`([一二三四五六七八九十百千万\d]+)[、，。]`),
	}

	chineseNumRunRe = regexp.MustCompile(`[一二三四五六七八九十百千万\d]+`)
	fallbackRe      = regexp.MustCompile(`(\d+(?:\.\d+)*|第[一二三四五六七八九十\d]+章|第[一二三四五六七八九十\d]+节|[一二三四五六七八九十百千万\d]+)[、，。]?`)
)

// removeEnglishText 移除文本中的英文部分，只保留中文部分
func removeEnglishText(text string) string {
	if text == "" {
		return text
	}

	for _, keyword := range []string{"Chapter", "Section", "Part", "CHAPTER", "SECTION", "PART"} {
		if idx := strings.Index(text, keyword); idx != -1 {
			return strings.TrimSpace(text[:idx])
		}
	}

	if loc := englishWordRe.FindStringIndex(text); loc != nil {
		if chinese := strings.TrimSpace(text[:loc[0]]); chinese != "" {
			return chinese
		}
	}

	return strings.TrimSpace(text)
}

// ChineseToArabic 将中文数字转换为阿拉伯数字。
// 支持映射表中的直接数字、"X十"、"X十Y" 组合，失败时返回 ok=false。
func ChineseToArabic(num string) (int, bool) {
	num = strings.TrimSpace(num)
	if num == "" {
		return 0, false
	}

	if allDigitsRe.MatchString(num) {
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, false
		}
		return n, true
	}

	if n, ok := chineseNumMap[num]; ok {
		return n, true
	}

	// "二十"、"三十" 等整十形式
	if strings.HasSuffix(num, "十") {
		base := strings.TrimSuffix(num, "十")
		if base == "" {
			return 10, true
		}
		if n, ok := chineseNumMap[base]; ok {
			return n * 10, true
		}
	}

	// "十三"、"二十五" 等带十的组合
	if len([]rune(num)) >= 2 && strings.Contains(num, "十") {
		parts := strings.Split(num, "十")
		if len(parts) == 2 {
			tens := 1
			if parts[0] != "" {
				tens = chineseNumMap[parts[0]]
			}
			ones := chineseNumMap[parts[1]]
			return tens*10 + ones, true
		}
	}

	return 0, false
}

// Normalize 标准化章节格式，提取纯数字章节编号。
// 永不失败，最坏情况返回去噪后的原始输入。
func Normalize(label string) string {
	if label == "" {
		return ""
	}

	label = strings.TrimSpace(label)
	label = removeEnglishText(label)
	label = strings.TrimRight(label, ".")

	if m := leadingNumRe.FindStringSubmatch(label); m != nil {
		return m[1]
	}

	for _, pattern := range normalizePatterns {
		if m := pattern.FindString(label); m != "" {
			matched := strings.TrimRight(m, ".")
			return removeEnglishText(matched)
		}
	}

	return strings.TrimRight(label, ".")
}

// Extract 从自由文本（标题、关键词列表、正文前缀）中提取章节信息。
// 按优先级依次尝试：点分数字串、中文章节格式、顿号结尾的数字串、
// 最后回退到 Normalize。找不到可信的章节时返回空串。
func Extract(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = removeEnglishText(text)
	runes := []rune(text)

	// 匹配开头的点分数字格式，如 "13.2"
	var numericParts []string
	i := 0
	for i < len(runes) && isASCIIDigit(runes[i]) {
		j := i
		for j < len(runes) && isASCIIDigit(runes[j]) {
			j++
		}
		numericParts = append(numericParts, string(runes[i:j]))
		i = j

		if i < len(runes) && runes[i] == '.' {
			if i+1 < len(runes) && isASCIIDigit(runes[i+1]) {
				i++
				continue
			}
		}
		break
	}

	if len(numericParts) > 0 {
		numeric := strings.Join(numericParts, ".")
		// "1.0x" 形式：尾段 ".0" 后紧跟字母 x 时按目录噪声丢弃尾段
		if i < len(runes) && (runes[i] == 'x' || runes[i] == 'X') && strings.HasSuffix(numeric, ".0") {
			numeric = strings.Join(numericParts[:len(numericParts)-1], ".")
		}
		return numeric
	}

	// 匹配中文章节格式
	for _, pattern := range extractPatterns {
		m := pattern.FindString(text)
		if m == "" {
			continue
		}
		matched := removeEnglishText(strings.TrimSpace(m))
		if strings.ContainsAny(matched, "、，。") {
			if num := chineseNumRunRe.FindString(matched); num != "" {
				return strings.TrimSpace(num)
			}
		}
		return strings.TrimRight(matched, "、，。")
	}

	if m := fallbackRe.FindStringSubmatch(text); m != nil {
		candidate := removeEnglishText(strings.TrimSpace(m[1]))
		if pureChineseRe.MatchString(candidate) {
			return candidate
		}
		if dottedNumRe.MatchString(candidate) {
			return candidate
		}
		if strings.Contains(candidate, "第") && (strings.Contains(candidate, "章") || strings.Contains(candidate, "节")) {
			return strings.TrimRight(candidate, "、，。")
		}
	}

	normalized := Normalize(text)
	if normalized != "" && normalized != strings.TrimRight(text, ".") {
		return normalized
	}
	return ""
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Levels 将章节编号转换为层级数字列表，用于比较层级。
// 例如 "13.2" -> [13, 2]，"第十三章" -> [13]。无法解析时返回 nil。
func Levels(label string) []int {
	if label == "" {
		return nil
	}

	normalized := Normalize(label)
	if normalized == "" {
		return nil
	}

	if dottedNumRe.MatchString(normalized) {
		parts := strings.Split(normalized, ".")
		levels := make([]int, 0, len(parts))
		for _, part := range parts {
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil
			}
			levels = append(levels, n)
		}
		return levels
	}

	if m := chapterHeadRe.FindStringSubmatch(normalized); m != nil {
		if n, ok := ChineseToArabic(m[1]); ok {
			return []int{n}
		}
	}

	if m := sectionHeadRe.FindStringSubmatch(normalized); m != nil {
		if n, ok := ChineseToArabic(m[1]); ok {
			return []int{n}
		}
	}

	if pureChineseRe.MatchString(normalized) {
		if n, ok := ChineseToArabic(normalized); ok {
			return []int{n}
		}
	}

	return nil
}

// IsParent 判断 a 是否是 b 的父章节。
// 任何章节都不是自身的父章节。
func IsParent(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	a = Normalize(a)
	b = Normalize(b)

	if a == "" || b == "" {
		return false
	}
	if a == b {
		return false
	}

	levelsA := Levels(a)
	levelsB := Levels(b)

	if len(levelsA) > 0 && len(levelsB) > 0 {
		// 层级路径的严格前缀
		if len(levelsA) < len(levelsB) && equalLevels(levelsA, levelsB[:len(levelsA)]) {
			return true
		}

		// 单级章节号相同视为同章（如 "13" 与 "第十三章"）
		if len(levelsA) == 1 && levelsA[0] == levelsB[0] {
			return true
		}
	}

	// 文本前缀规则：b 在 a 之后紧跟章节分隔符。
	// 对混合中英文编号的标签，本规则可能与数字层级规则不一致，
	// 保留原始行为。
	if strings.HasPrefix(b, a) {
		remaining := strings.TrimSpace(b[len(a):])
		if remaining != "" && (strings.HasPrefix(remaining, "第") ||
			strings.HasPrefix(remaining, ".") ||
			strings.HasPrefix(remaining, "节")) {
			return true
		}
	}

	return false
}

// IsValidMatch 判断检索结果是否有效匹配标注章节。
// 标准化后相等、层级路径相等、单级章节号相同，
// 或检索结果是标注章节的父章节时均视为有效；
// 反向（检索结果比标注更细）不计为有效。
func IsValidMatch(retrieved, reference string) bool {
	if retrieved == "" || reference == "" {
		return false
	}

	retrievedNorm := Normalize(retrieved)
	referenceNorm := Normalize(reference)

	if retrievedNorm == "" || referenceNorm == "" {
		return false
	}

	if retrievedNorm == referenceNorm {
		return true
	}

	retrievedLevels := Levels(retrievedNorm)
	referenceLevels := Levels(referenceNorm)

	if len(retrievedLevels) > 0 && len(referenceLevels) > 0 {
		if equalLevels(retrievedLevels, referenceLevels) {
			return true
		}

		if len(retrievedLevels) == 1 && len(referenceLevels) == 1 &&
			retrievedLevels[0] == referenceLevels[0] {
			return true
		}
	}

	if IsParent(retrievedNorm, referenceNorm) {
		return true
	}

	return false
}

func equalLevels(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
