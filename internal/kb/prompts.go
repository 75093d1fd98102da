package kb

const rewordingPrompt = `Rephrase the [ORIGINAL QUESTION] below in %d distinct ways, keeping the
meaning and context intact. Avoid redundancy and trivial synonym swaps.
Return the reworded questions one per line, with no numbering or bullets.

## Example:
[ORIGINAL QUESTION]: What is the capital of Italy?
[REWRITTEN QUESTIONS]:
Which city serves as the capital of Italy?
Can you name the capital city of Italy?
What is the name of Italy's capital?

## Input:
[ORIGINAL QUESTION]: %s
[REWRITTEN QUESTIONS]:`

const qaPairsSystemPrompt = `Generate a balanced set (2 or more) of relevant questions and their
corresponding answers from the given text. Mix factual, analytical,
application-based, cause-and-effect, comparison, and scenario-based types.
Only generate questions whose answers are present in the text. Do not
speculate.
Format the result as a JSON array of objects, each with a 'q' key for the
question and an 'a' key for the answer. Return only the JSON array.

## Example:
[INPUT TEXT]
The water cycle describes how water evaporates from the surface, rises as
vapor, condenses into clouds, and returns as precipitation. Solar energy
drives evaporation, making the sun the primary engine of the cycle.

[OUTPUT JSON]
[{"q": "What drives evaporation in the water cycle?", "a": "Solar energy
drives evaporation, making the sun the primary engine of the cycle."},
{"q": "What are the main stages of the water cycle?", "a": "Water evaporates
from the surface, rises as vapor, condenses into clouds, and returns as
precipitation."}]`
