package canon

// protestantBooks is the 66-book Protestant canon in canonical order.
// Short names follow OSIS book IDs.
var protestantBooks = []Book{
	{1, 1, "Genesis", "Gen", TestamentOld, 50},
	{2, 2, "Exodus", "Exod", TestamentOld, 40},
	{3, 3, "Leviticus", "Lev", TestamentOld, 27},
	{4, 4, "Numbers", "Num", TestamentOld, 36},
	{5, 5, "Deuteronomy", "Deut", TestamentOld, 34},
	{6, 6, "Joshua", "Josh", TestamentOld, 24},
	{7, 7, "Judges", "Judg", TestamentOld, 21},
	{8, 8, "Ruth", "Ruth", TestamentOld, 4},
	{9, 9, "1 Samuel", "1Sam", TestamentOld, 31},
	{10, 10, "2 Samuel", "2Sam", TestamentOld, 24},
	{11, 11, "1 Kings", "1Kgs", TestamentOld, 22},
	{12, 12, "2 Kings", "2Kgs", TestamentOld, 25},
	{13, 13, "1 Chronicles", "1Chr", TestamentOld, 29},
	{14, 14, "2 Chronicles", "2Chr", TestamentOld, 36},
	{15, 15, "Ezra", "Ezra", TestamentOld, 10},
	{16, 16, "Nehemiah", "Neh", TestamentOld, 13},
	{17, 17, "Esther", "Esth", TestamentOld, 10},
	{18, 18, "Job", "Job", TestamentOld, 42},
	{19, 19, "Psalms", "Ps", TestamentOld, 150},
	{20, 20, "Proverbs", "Prov", TestamentOld, 31},
	{21, 21, "Ecclesiastes", "Eccl", TestamentOld, 12},
	{22, 22, "Song of Solomon", "Song", TestamentOld, 8},
	{23, 23, "Isaiah", "Isa", TestamentOld, 66},
	{24, 24, "Jeremiah", "Jer", TestamentOld, 52},
	{25, 25, "Lamentations", "Lam", TestamentOld, 5},
	{26, 26, "Ezekiel", "Ezek", TestamentOld, 48},
	{27, 27, "Daniel", "Dan", TestamentOld, 12},
	{28, 28, "Hosea", "Hos", TestamentOld, 14},
	{29, 29, "Joel", "Joel", TestamentOld, 3},
	{30, 30, "Amos", "Amos", TestamentOld, 9},
	{31, 31, "Obadiah", "Obad", TestamentOld, 1},
	{32, 32, "Jonah", "Jonah", TestamentOld, 4},
	{33, 33, "Micah", "Mic", TestamentOld, 7},
	{34, 34, "Nahum", "Nah", TestamentOld, 3},
	{35, 35, "Habakkuk", "Hab", TestamentOld, 3},
	{36, 36, "Zephaniah", "Zeph", TestamentOld, 3},
	{37, 37, "Haggai", "Hag", TestamentOld, 2},
	{38, 38, "Zechariah", "Zech", TestamentOld, 14},
	{39, 39, "Malachi", "Mal", TestamentOld, 4},
	{40, 40, "Matthew", "Matt", TestamentNew, 28},
	{41, 41, "Mark", "Mark", TestamentNew, 16},
	{42, 42, "Luke", "Luke", TestamentNew, 24},
	{43, 43, "John", "John", TestamentNew, 21},
	{44, 44, "Acts", "Acts", TestamentNew, 28},
	{45, 45, "Romans", "Rom", TestamentNew, 16},
	{46, 46, "1 Corinthians", "1Cor", TestamentNew, 16},
	{47, 47, "2 Corinthians", "2Cor", TestamentNew, 13},
	{48, 48, "Galatians", "Gal", TestamentNew, 6},
	{49, 49, "Ephesians", "Eph", TestamentNew, 6},
	{50, 50, "Philippians", "Phil", TestamentNew, 4},
	{51, 51, "Colossians", "Col", TestamentNew, 4},
	{52, 52, "1 Thessalonians", "1Thess", TestamentNew, 5},
	{53, 53, "2 Thessalonians", "2Thess", TestamentNew, 3},
	{54, 54, "1 Timothy", "1Tim", TestamentNew, 6},
	{55, 55, "2 Timothy", "2Tim", TestamentNew, 4},
	{56, 56, "Titus", "Titus", TestamentNew, 3},
	{57, 57, "Philemon", "Phlm", TestamentNew, 1},
	{58, 58, "Hebrews", "Heb", TestamentNew, 13},
	{59, 59, "James", "Jas", TestamentNew, 5},
	{60, 60, "1 Peter", "1Pet", TestamentNew, 5},
	{61, 61, "2 Peter", "2Pet", TestamentNew, 3},
	{62, 62, "1 John", "1John", TestamentNew, 5},
	{63, 63, "2 John", "2John", TestamentNew, 1},
	{64, 64, "3 John", "3John", TestamentNew, 1},
	{65, 65, "Jude", "Jude", TestamentNew, 1},
	{66, 66, "Revelation", "Rev", TestamentNew, 22},
}

// Protestant returns the built-in 66-book registry.
// Each call returns a fresh Registry over the same immutable table.
func Protestant() *Registry {
	return MustRegistry(protestantBooks)
}
