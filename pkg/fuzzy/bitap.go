package fuzzy

import "math"

// maxBits 是单个 bitap 分片能容纳的模式长度。
const maxBits = 32

// minScore 是非完全相等匹配的最低分数。
const minScore = 0.001

type chunk struct {
	pattern    []rune
	alphabet   map[rune]int64
	startIndex int
}

// patternAlphabet 为每个字符生成其在模式中出现位置的位掩码。
func patternAlphabet(pattern []rune) map[rune]int64 {
	mask := make(map[rune]int64, len(pattern))
	n := len(pattern)
	for i, r := range pattern {
		mask[r] |= int64(1) << (n - i - 1)
	}
	return mask
}

// computeScore: errors/len(pattern) 表示准确度，偏离期望位置的距离按 distance 折算。
func computeScore(patternLen, errors, currentLocation, expectedLocation int, opts Options) float64 {
	accuracy := float64(errors) / float64(patternLen)
	if opts.IgnoreLocation {
		return accuracy
	}
	proximity := expectedLocation - currentLocation
	if proximity < 0 {
		proximity = -proximity
	}
	if opts.Distance == 0 {
		if proximity != 0 {
			return 1.0
		}
		return accuracy
	}
	return accuracy + float64(proximity)/float64(opts.Distance)
}

// indexRunes 从 from 开始查找 pattern 在 text 中第一次出现的位置。
func indexRunes(text, pattern []rune, from int) int {
	last := len(text) - len(pattern)
	for i := from; i <= last; i++ {
		match := true
		for j := range pattern {
			if text[i+j] != pattern[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// hasRun 判断匹配掩码中是否存在长度不小于 minLen 的连续命中。
func hasRun(mask []bool, minLen int) bool {
	run := 0
	for _, hit := range mask {
		if !hit {
			run = 0
			continue
		}
		run++
		if run >= minLen {
			return true
		}
	}
	return false
}

func bitAt(arr []int64, i int) int64 {
	if i < 0 || i >= len(arr) {
		return 0
	}
	return arr[i]
}

// bitapSearch 在 text 中近似查找 pattern（不超过 maxBits 个字符），返回是否命中和分数（越低越好）。
func bitapSearch(text, pattern []rune, alphabet map[rune]int64, location int, opts Options) (bool, float64) {
	patternLen := len(pattern)
	textLen := len(text)
	expectedLocation := max(0, min(location, textLen))

	currentThreshold := opts.Threshold
	bestLocation := expectedLocation

	computeMatches := opts.MinMatchCharLength > 1
	var matchMask []bool
	if computeMatches {
		matchMask = make([]bool, textLen)
	}

	// 先用精确子串收紧阈值
	for idx := indexRunes(text, pattern, bestLocation); idx > -1; idx = indexRunes(text, pattern, bestLocation) {
		score := computeScore(patternLen, 0, idx, expectedLocation, opts)
		currentThreshold = math.Min(score, currentThreshold)
		bestLocation = idx + patternLen
		if computeMatches {
			for i := 0; i < patternLen; i++ {
				matchMask[idx+i] = true
			}
		}
	}

	bestLocation = -1
	var lastBitArr []int64
	finalScore := 1.0
	binMax := patternLen + textLen
	mask := int64(1) << (patternLen - 1)

	for i := 0; i < patternLen; i++ {
		// 二分查找在当前错误数下仍可能低于阈值的最远偏移
		binMin := 0
		binMid := binMax
		for binMin < binMid {
			score := computeScore(patternLen, i, expectedLocation+binMid, expectedLocation, opts)
			if score <= currentThreshold {
				binMin = binMid
			} else {
				binMax = binMid
			}
			binMid = (binMax-binMin)/2 + binMin
		}
		binMax = binMid

		start := max(1, expectedLocation-binMid+1)
		var finish int
		if opts.FindAllMatches {
			finish = textLen
		} else {
			finish = min(expectedLocation+binMid, textLen) + patternLen
		}

		bitArr := make([]int64, finish+2)
		bitArr[finish+1] = (int64(1) << i) - 1

		for j := finish; j >= start; j-- {
			currentLocation := j - 1
			var charMatch int64
			if currentLocation < textLen {
				charMatch = alphabet[text[currentLocation]]
				if computeMatches {
					matchMask[currentLocation] = charMatch != 0
				}
			}

			bitArr[j] = ((bitArr[j+1] << 1) | 1) & charMatch
			if i > 0 {
				bitArr[j] |= ((bitAt(lastBitArr, j+1) | bitAt(lastBitArr, j)) << 1) | 1 | bitAt(lastBitArr, j+1)
			}

			if bitArr[j]&mask != 0 {
				finalScore = computeScore(patternLen, i, currentLocation, expectedLocation, opts)
				if finalScore <= currentThreshold {
					currentThreshold = finalScore
					bestLocation = currentLocation
					if bestLocation <= expectedLocation {
						break
					}
					start = max(1, 2*expectedLocation-bestLocation)
				}
			}
		}

		// 再多一个错误也不可能更好时提前结束
		if computeScore(patternLen, i+1, expectedLocation, expectedLocation, opts) > currentThreshold {
			break
		}
		lastBitArr = bitArr
	}

	isMatch := bestLocation >= 0
	if computeMatches && !hasRun(matchMask, opts.MinMatchCharLength) {
		isMatch = false
	}
	return isMatch, math.Max(minScore, finalScore)
}
