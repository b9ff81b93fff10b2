package prescription

import "strings"

// TagID is a canonical exercise category, e.g. walking or strength_core.
type TagID string

// Tag couples a canonical exercise tag with the keywords that mark it
// in a free-text prescription note, and a display label for clients.
// The keyword lists come from the national physical fitness dataset
// prescription notes, hence Korean.
type Tag struct {
	ID       TagID
	Keywords []string
	Label    string
}

// Vocabulary is the fixed, ordered tag set shared by training and
// inference. The order defines label matrix columns and ranking tie
// breaks, so changing it (or the tag set) invalidates stored model
// artifacts - the artifact store checks for that on load.
var Vocabulary = []Tag{
	// cardio
	{ID: "walking", Keywords: []string{"걷기", "만보", "빠르게 걷기", "속보", "파워워킹"}, Label: "걷기"},
	{ID: "jogging", Keywords: []string{"조깅", "러닝", "런닝", "러닝머신", "트레드밀", "가볍게 뛰기"}, Label: "조깅"},
	{ID: "cycling", Keywords: []string{"사이클", "자전거", "실내자전거", "스피닝"}, Label: "자전거"},
	{ID: "swimming", Keywords: []string{"수영", "자유형", "평영", "배영"}, Label: "수영"},
	{ID: "aerobic_interval", Keywords: []string{"인터벌", "고강도", "interval", "hiit", "스프린트"}, Label: "고강도 인터벌"},

	// strength
	{ID: "strength_lower", Keywords: []string{"스쿼트", "런지", "레그프레스", "레그컬", "힙쓰러스트", "데드리프트", "하체 근력"}, Label: "하체 근력 운동"},
	{ID: "strength_upper", Keywords: []string{"푸시업", "벤치프레스", "랫풀다운", "풀업", "덤벨프레스", "숄더프레스", "상체 근력"}, Label: "상체 근력 운동"},
	{ID: "strength_core", Keywords: []string{"플랭크", "데드버그", "버드독", "크런치", "복근", "코어"}, Label: "코어 운동"},

	// flexibility / balance
	{ID: "flexibility", Keywords: []string{"스트레칭", "유연성", "햄스트링 스트레칭", "전굴", "하체 스트레칭", "상체 스트레칭"}, Label: "스트레칭"},
	{ID: "balance", Keywords: []string{"균형", "밸런스", "스텝", "자세 안정", "싱글 레그 스탠스"}, Label: "균형 운동"},
}

// VocabularyTagIDs returns the tag ids in vocabulary order.
func VocabularyTagIDs() []TagID {
	ids := make([]TagID, 0, len(Vocabulary))
	for _, t := range Vocabulary {
		ids = append(ids, t.ID)
	}
	return ids
}

// TagLabel maps a tag id to its display label. Unknown ids fall back
// to the raw id string.
func TagLabel(id TagID) string {
	for _, t := range Vocabulary {
		if t.ID == id {
			return t.Label
		}
	}
	return string(id)
}

// NormalizeNote lowercases the note, collapses whitespace runs to a
// single space and trims it.
func NormalizeNote(note string) string {
	return strings.Join(strings.Fields(strings.ToLower(note)), " ")
}

// ExtractTags returns the tags whose keywords occur in the note, in
// vocabulary order. Matching is plain substring containment on the
// normalized note - no tokenization, no stemming. A tag's keyword list
// is scanned only until its first hit.
func ExtractTags(note string) []TagID {
	normalized := NormalizeNote(note)
	if normalized == "" {
		return nil
	}

	var found []TagID
	for _, tag := range Vocabulary {
		for _, kw := range tag.Keywords {
			if strings.Contains(normalized, kw) {
				found = append(found, tag.ID)
				break
			}
		}
	}
	return found
}
