package feedback

// phrasebook holds the phrasing for one language. Every table is indexed by
// [Band].
type phrasebook struct {
	// wordTips are per-word suggestion templates; %s is the word.
	wordTips []string

	general  [bandCount][]string
	detailed [bandCount]string

	// skipped and added are the singular and plural forms of the word-count
	// clause; %d is the count.
	skipped [2]string
	added   [2]string
}

// phrasebooks is keyed by primary language subtag and never mutated.
var phrasebooks = map[string]phrasebook{
	"en": {
		wordTips: []string{
			"Focus on the vowel sounds in '%s' and stress the right syllable.",
			"Say '%s' slowly, articulating each sound, then build up speed.",
			"Listen to a native speaker say '%s' and repeat it several times.",
			"Break '%s' into syllables and practise each one separately.",
			"Record yourself saying '%s' and compare it with the reference.",
		},
		general: [bandCount][]string{
			BandExcellent: {"Excellent pronunciation!", "Your speech is clear and natural.", "Keep up the great work."},
			BandVeryGood:  {"Very good pronunciation.", "Most words were clear and accurate.", "A little more practice will make it perfect."},
			BandGood:      {"Good effort.", "Your pronunciation is understandable.", "Focus on the highlighted words to improve."},
			BandFair:      {"Fair attempt.", "Some words were hard to understand.", "Practise the highlighted words slowly."},
			BandNeedsWork: {"Keep practising!", "Many words were not recognized.", "Try speaking more slowly and clearly."},
		},
		detailed: [bandCount]string{
			BandExcellent: "Outstanding! You scored %d%%. Your pronunciation of the sentence was clear and accurate.",
			BandVeryGood:  "Great job! You scored %d%%. Only a few sounds need fine-tuning.",
			BandGood:      "Good work. You scored %d%%. Several words could be pronounced more clearly.",
			BandFair:      "You scored %d%%. Your speech was partly understood; focus on the words marked as incorrect.",
			BandNeedsWork: "You scored %d%%. Much of the sentence was not recognized. Try again, slowly and clearly.",
		},
		skipped: [2]string{"%d word was skipped.", "%d words were skipped."},
		added:   [2]string{"%d word was added.", "%d words were added."},
	},
	"es": {
		wordTips: []string{
			"Concéntrate en las vocales de '%s'; cada vocal se pronuncia clara y breve.",
			"Pronuncia '%s' despacio, articulando cada sonido.",
			"Escucha '%s' en boca de un hablante nativo y repítelo varias veces.",
			"Divide '%s' en sílabas y practica cada una por separado.",
		},
		general: [bandCount][]string{
			BandExcellent: {"¡Pronunciación excelente!", "Tu habla es clara y natural.", "Sigue así."},
			BandVeryGood:  {"Muy buena pronunciación.", "La mayoría de las palabras fueron claras.", "Un poco más de práctica y será perfecta."},
			BandGood:      {"Buen esfuerzo.", "Tu pronunciación se entiende.", "Practica las palabras marcadas para mejorar."},
			BandFair:      {"Intento aceptable.", "Algunas palabras fueron difíciles de entender.", "Practica despacio las palabras marcadas."},
			BandNeedsWork: {"¡Sigue practicando!", "Muchas palabras no se reconocieron.", "Intenta hablar más despacio y con claridad."},
		},
		detailed: [bandCount]string{
			BandExcellent: "¡Sobresaliente! Obtuviste un %d%%. Pronunciaste la frase con claridad y precisión.",
			BandVeryGood:  "¡Muy bien! Obtuviste un %d%%. Solo algunos sonidos necesitan ajustes.",
			BandGood:      "Buen trabajo. Obtuviste un %d%%. Varias palabras podrían pronunciarse con más claridad.",
			BandFair:      "Obtuviste un %d%%. Se entendió parte de la frase; céntrate en las palabras marcadas como incorrectas.",
			BandNeedsWork: "Obtuviste un %d%%. Gran parte de la frase no se reconoció. Vuelve a intentarlo despacio y con claridad.",
		},
		skipped: [2]string{"Se omitió %d palabra.", "Se omitieron %d palabras."},
		added:   [2]string{"Se añadió %d palabra.", "Se añadieron %d palabras."},
	},
	"fr": {
		wordTips: []string{
			"Concentrez-vous sur les voyelles de '%s' et sur les sons nasaux.",
			"Prononcez '%s' lentement en articulant chaque son.",
			"Écoutez '%s' prononcé par un locuteur natif et répétez-le plusieurs fois.",
			"Attention aux consonnes finales muettes dans '%s'.",
		},
		general: [bandCount][]string{
			BandExcellent: {"Excellente prononciation !", "Votre élocution est claire et naturelle.", "Continuez ainsi."},
			BandVeryGood:  {"Très bonne prononciation.", "La plupart des mots étaient clairs.", "Encore un peu de pratique et ce sera parfait."},
			BandGood:      {"Bon effort.", "Votre prononciation est compréhensible.", "Travaillez les mots signalés pour progresser."},
			BandFair:      {"Tentative correcte.", "Certains mots étaient difficiles à comprendre.", "Entraînez-vous lentement sur les mots signalés."},
			BandNeedsWork: {"Continuez à vous entraîner !", "Beaucoup de mots n'ont pas été reconnus.", "Essayez de parler plus lentement et plus clairement."},
		},
		detailed: [bandCount]string{
			BandExcellent: "Remarquable ! Vous avez obtenu %d %%. Votre prononciation de la phrase était claire et précise.",
			BandVeryGood:  "Très bien ! Vous avez obtenu %d %%. Seuls quelques sons demandent à être affinés.",
			BandGood:      "Bon travail. Vous avez obtenu %d %%. Plusieurs mots pourraient être prononcés plus clairement.",
			BandFair:      "Vous avez obtenu %d %%. La phrase a été en partie comprise ; concentrez-vous sur les mots incorrects.",
			BandNeedsWork: "Vous avez obtenu %d %%. Une grande partie de la phrase n'a pas été reconnue. Réessayez lentement et clairement.",
		},
		skipped: [2]string{"%d mot a été omis.", "%d mots ont été omis."},
		added:   [2]string{"%d mot a été ajouté.", "%d mots ont été ajoutés."},
	},
}

// defaultLanguage is the phrasebook used for unknown tags.
const defaultLanguage = "en"

// defaultGeneral is the shorter general feedback for languages without a
// phrasebook.
var defaultGeneral = [bandCount][]string{
	BandExcellent: {"Excellent pronunciation!"},
	BandVeryGood:  {"Very good pronunciation."},
	BandGood:      {"Good effort."},
	BandFair:      {"Fair attempt."},
	BandNeedsWork: {"Keep practising!"},
}

// Improvement and diagnostic sentences. These are English only.
const (
	encouragement     = "Great job! Keep practising regularly to maintain your pronunciation."
	genericWordTip    = "Practise the word '%s' slowly, sound by sound."
	soundsAlikePrefix = "'%s' sounded like '%s'. "
	incorrectSummary  = "Focus on the %d words marked as incorrect."
	vowelTip          = "Pay attention to vowel sounds: open your mouth fully and hold long vowels."
	consonantTip      = "Practise consonant clusters slowly so that every consonant is heard."
	diagTrailing      = "Final consonants are being dropped or softened; finish each word crisply."
	diagDoubleVowel   = "Vowel combinations such as 'ea' or 'ou' need attention."
	diagLongWords     = "Longer words are challenging; break them into syllables."
	diagEnglishSounds = "Some English sounds (th, r, l, w) need more practice."
	diagRhythm        = "Work on the rhythm and intonation of the sentence; stress the important words."
)

// genericTips close the improvement list when many words were wrong.
var genericTips = []string{
	"Listen to native speakers and shadow their rhythm.",
	"Record yourself and compare the recording with the reference.",
}
