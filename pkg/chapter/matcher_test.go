package chapter

import "testing"

// TestChineseToArabic 测试中文数字转换
func TestChineseToArabic(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"一", 1, true},
		{"十", 10, true},
		{"十三", 13, true},
		{"二十", 20, true},
		{"二十五", 25, true},
		{"三十", 30, true},
		{"四十", 40, true},
		{"四十二", 42, true},
		{"百", 100, true},
		{"千", 1000, true},
		{"42", 42, true},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := ChineseToArabic(tt.in)
		if ok != tt.ok {
			t.Errorf("ChineseToArabic(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ChineseToArabic(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestNormalize 测试章节标准化
func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"13.2", "13.2"},
		{"13.2.", "13.2"},
		{"13.2 Chapter Overview", "13.2"},
		{"第十三章", "第十三章"},
		{"第十三章第二节", "第十三章第二节"},
		{"第3节", "第3节"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestExtract 测试从自由文本提取章节信息
func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"点分数字", "13.2 电气系统概述", "13.2"},
		{"多级点分数字", "13.2.1 接地要求", "13.2.1"},
		{"尾段.0后跟x", "1.0x 版本说明", "1"},
		{"章节组合", "答案在第十三章第二节中", "第十三章第二节"},
		{"仅节", "参见第二节的规定", "第二节"},
		{"顿号数字", "十三、电气安全", "十三"},
		{"英文噪声", "13.2 Section Electrical", "13.2"},
		{"无章节信息", "这段文本没有任何编号", ""},
		{"空文本", "", ""},
	}

	for _, tt := range tests {
		if got := Extract(tt.in); got != tt.want {
			t.Errorf("%s: Extract(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}

// TestExtractIdempotent Extract 的结果再 Normalize 应保持不变
func TestExtractIdempotent(t *testing.T) {
	inputs := []string{
		"13.2 电气系统概述",
		"第十三章第二节的内容",
		"第十三章 总则",
		"十三、电气安全",
		"7.1.3 防雷接地",
	}

	for _, in := range inputs {
		extracted := Extract(in)
		if extracted == "" {
			continue
		}
		if got := Normalize(extracted); got != extracted {
			t.Errorf("Normalize(Extract(%q)) = %q, want %q", in, got, extracted)
		}
	}
}

// TestLevels 测试层级路径转换
func TestLevels(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"13.2", []int{13, 2}},
		{"13.2.1", []int{13, 2, 1}},
		{"第十三章", []int{13}},
		{"第3节", []int{3}},
		{"二十五", []int{25}},
		{"没有编号", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := Levels(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("Levels(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Levels(%q) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}

// TestIsParent 测试父章节判断
func TestIsParent(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"13", "13.2", true},
		{"13.2", "13.2.1", true},
		{"13.2", "13", false},
		{"14", "13.2", false},
		{"第十三章", "第十三章第二节", true},
		{"13", "第十三章", true}, // 单级同号视为同章
		{"", "13.2", false},
		{"13.2", "", false},
	}

	for _, tt := range tests {
		if got := IsParent(tt.a, tt.b); got != tt.want {
			t.Errorf("IsParent(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// TestIsParentIrreflexive 任何章节都不是自身的父章节
func TestIsParentIrreflexive(t *testing.T) {
	labels := []string{"13", "13.2", "第十三章", "第十三章第二节", "二十五", "13.2."}
	for _, label := range labels {
		if IsParent(label, label) {
			t.Errorf("IsParent(%q, %q) = true, want false", label, label)
		}
	}
}

// TestIsValidMatch 测试检索章节与标注章节的匹配
func TestIsValidMatch(t *testing.T) {
	tests := []struct {
		retrieved, reference string
		want                 bool
	}{
		{"13.2", "13.2", true},
		{"13", "13.2", true},  // 父章节命中
		{"13.2", "13", false}, // 过宽的标注不反向计分
		{"14", "13.2", false},
		{"第十三章", "13", true}, // 单级同号
		{"第十三章", "第十三章第二节", true},
		{"第十三章第二节", "第十三章", true}, // 层级同为 [13]
		{"", "13.2", false},
		{"13.2", "", false},
		{"没有编号", "也没有编号", false},
	}

	for _, tt := range tests {
		if got := IsValidMatch(tt.retrieved, tt.reference); got != tt.want {
			t.Errorf("IsValidMatch(%q, %q) = %v, want %v", tt.retrieved, tt.reference, got, tt.want)
		}
	}
}

// TestIsValidMatchReflexive 标准化非空的标签与自身匹配
func TestIsValidMatchReflexive(t *testing.T) {
	labels := []string{"13", "13.2", "13.2.1", "第十三章", "第十三章第二节", "二十五"}
	for _, label := range labels {
		if Normalize(label) == "" {
			continue
		}
		if !IsValidMatch(label, label) {
			t.Errorf("IsValidMatch(%q, %q) = false, want true", label, label)
		}
	}
}

// TestMatchDirectional 父子匹配是单向的
func TestMatchDirectional(t *testing.T) {
	pairs := [][2]string{
		{"13", "13.2"},
		{"13.2", "13.2.1"},
		{"7", "7.1.3"},
	}

	for _, p := range pairs {
		parent, child := p[0], p[1]
		if !IsParent(parent, child) {
			t.Fatalf("IsParent(%q, %q) = false, want true", parent, child)
		}
		if !IsValidMatch(parent, child) {
			t.Errorf("IsValidMatch(%q, %q) = false, want true", parent, child)
		}
		if IsValidMatch(child, parent) {
			t.Errorf("IsValidMatch(%q, %q) = true, want false", child, parent)
		}
	}
}

// TestCache 测试运行级缓存
func TestCache(t *testing.T) {
	c := NewCache()

	if got := c.Extract("13.2 概述"); got != "13.2" {
		t.Fatalf("Cache.Extract() = %q, want %q", got, "13.2")
	}
	// 第二次命中缓存，结果一致
	if got := c.Extract("13.2 概述"); got != "13.2" {
		t.Fatalf("Cache.Extract() cached = %q, want %q", got, "13.2")
	}

	if !c.ValidMatch("13", "13.2") {
		t.Error("Cache.ValidMatch(13, 13.2) = false, want true")
	}
	if c.ValidMatch("14", "13.2") {
		t.Error("Cache.ValidMatch(14, 13.2) = true, want false")
	}

	if c.Size() != 3 {
		t.Errorf("Cache.Size() = %d, want 3", c.Size())
	}
}
